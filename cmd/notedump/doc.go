// Command notedump exports OneNote notebooks to markdown.
//
// Subcommands: login (interactive sign-in), list (notebooks and sections),
// dump (export one notebook), runs (export history), and config utilities.
package main
