package main

// CLI defines the command-line interface.
type CLI struct {
	Config string `short:"c" help:"Gateway TOML config file" type:"path"`
	Server string `short:"s" env:"CRYPTODESK_SERVER" help:"Gateway base URL; commands run in-process when empty"`

	Generate GenerateCmd `cmd:"" help:"Generate (or replay) the report for a date"`
	Show     ShowCmd     `cmd:"" help:"Print the stored report for a date"`
	List     ListCmd     `cmd:"" help:"List dates with stored snapshots"`
	Watch    WatchCmd    `cmd:"" help:"Follow a running report on a gateway"`
	Ask      AskCmd      `cmd:"" help:"Ask a question about a day's report"`
	Deep     DeepCmd     `cmd:"" help:"Run a deep analysis query"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// GenerateCmd runs the pipeline and streams the agent log.
type GenerateCmd struct {
	Date  string `arg:"" optional:"" help:"Report date (YYYY-MM-DD), default today"`
	JSON  bool   `help:"Print the final report as JSON"`
	Quiet bool   `short:"q" help:"Do not stream the agent log"`
}

// ShowCmd prints a stored snapshot.
type ShowCmd struct {
	Date string `arg:"" optional:"" help:"Report date (YYYY-MM-DD), default today"`
	JSON bool   `help:"Print the whole snapshot as JSON"`
	Log  bool   `help:"Include the agent log"`
}

type ListCmd struct{}

// WatchCmd streams snapshots from a gateway.
type WatchCmd struct {
	Date string `arg:"" optional:"" help:"Report date (YYYY-MM-DD), default today"`
}

// AskCmd continues a chat about the report.
type AskCmd struct {
	Message string `arg:"" help:"Question"`
	Date    string `short:"d" help:"Report date used as context"`
}

type DeepCmd struct {
	Query string `arg:"" help:"Analysis query"`
}

type VersionCmd struct{}
