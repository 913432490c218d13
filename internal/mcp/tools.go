package mcp

import "github.com/mark3labs/mcp-go/mcp"

var filterOption = mcp.WithString("filter",
	mcp.Description("Optional domain filter: gmail, yahoo, other (neither), or a domain suffix such as example.org"),
)

var scanToolDef = mcp.NewTool("email_scan",
	mcp.WithDescription("Scan local files and/or inline text for email addresses and add new ones to the collected set. "+
		"Supported sources: .html/.htm, .md, .eml, .mbox, .pdf and plain text. The scan becomes the current page."),
	mcp.WithArray("sources",
		mcp.Description("Local file paths to scan"),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithString("text", mcp.Description("Inline page text, scanned as the first source")),
	mcp.WithString("kind",
		mcp.Description("Force a format for every file source"),
		mcp.Enum("text", "html", "markdown", "eml", "mbox", "pdf"),
	),
	mcp.WithBoolean("collect_all_sources",
		mcp.Description("Override the stored setting for this run; false scans only the first source"),
	),
	mcp.WithBoolean("dry_run", mcp.Description("Extract without collecting or recording the scan")),
)

var checkToolDef = mcp.NewTool("email_check",
	mcp.WithDescription("Explain which candidates in a short text would be accepted and which rule rejects the rest. Collects nothing."),
	mcp.WithString("text", mcp.Required(), mcp.Description("A single address or short free text")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("email_list",
	mcp.WithDescription("List all collected email addresses, oldest sighting first."),
	filterOption,
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 1000)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var latestToolDef = mcp.NewTool("email_latest",
	mcp.WithDescription("Get the most recent scan and its addresses (the current page). Returns item=null before any scan."),
	filterOption,
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyToolDef = mcp.NewTool("email_history",
	mcp.WithDescription("List past scans, newest first, without their address lists."),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var statsToolDef = mcp.NewTool("email_stats",
	mcp.WithDescription("Count collected addresses: total, gmail/yahoo/other split and top registrable domains."),
	mcp.WithNumber("top", mcp.Description("Number of domains to return (default 20)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var copyToolDef = mcp.NewTool("email_copy",
	mcp.WithDescription("Return a list as newline-separated text, ready to paste."),
	mcp.WithString("scope", mcp.Description("all (default) or current"), mcp.Enum("all", "current")),
	filterOption,
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("email_export",
	mcp.WithDescription("Write a list to a .txt, .csv or .pdf file. Default path: ~/.mailsift/exports/<filter>-<timestamp>.<ext>."),
	mcp.WithString("path", mcp.Description("Output path, directly inside an allowed directory")),
	mcp.WithString("format", mcp.Description("txt, csv or pdf; defaults to the path's extension, else txt"), mcp.Enum("txt", "csv", "pdf")),
	mcp.WithString("scope", mcp.Description("all (default) or current"), mcp.Enum("all", "current")),
	filterOption,
)

var clearToolDef = mcp.NewTool("email_clear",
	mcp.WithDescription("Remove every collected address. Scan history is kept."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	mcp.WithDestructiveHintAnnotation(true),
)

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Get the scan settings."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var settingsUpdateToolDef = mcp.NewTool("settings_update",
	mcp.WithDescription("Update scan settings. Omitted fields are left unchanged."),
	mcp.WithBoolean("collect_all_sources", mcp.Description("Scan every given source instead of only the first")),
	mcp.WithBoolean("auto_scan", mcp.Description("Rescan periodically while serve is running")),
)
