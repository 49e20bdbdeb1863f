package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILoad summarizes a load run.
type CLILoad struct {
	Database  string `json:"database"`
	Skipped   bool   `json:"skipped,omitempty"`
	Scripts   int    `json:"scripts"`
	Classes   int    `json:"classes"`
	Protocols int    `json:"protocols"`
	Headers   int    `json:"headers"`
	Records   int    `json:"records"`
	Elapsed   string `json:"elapsed"`
}

// CLIListing is a rendered declaration.
type CLIListing struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Listing string `json:"listing"`
}

// CLIRecord is a catalog record.
type CLIRecord struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Encoding string `json:"encoding"`
	Source   string `json:"source,omitempty"`
}

// CLIHierarchy combines the class hierarchy with the objects depending on
// the name.
type CLIHierarchy struct {
	Name              string   `json:"name"`
	SuperclassChain   []string `json:"superclass_chain"`
	Subclasses        []string `json:"subclasses"`
	Descendants       int      `json:"descendants"`
	AdoptingClasses   []string `json:"adopting_classes,omitempty"`
	AdoptingProtocols []string `json:"adopting_protocols,omitempty"`
	RecordUsers       []string `json:"record_users,omitempty"`
}

// CLIExport summarizes an export run.
type CLIExport struct {
	Dir     string   `json:"dir"`
	Files   int      `json:"files"`
	Bytes   uint64   `json:"bytes"`
	Size    string   `json:"size"`
	Elapsed string   `json:"elapsed"`
	Errors  []string `json:"errors,omitempty"`
}
