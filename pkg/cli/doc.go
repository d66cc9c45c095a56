// Package cli provides styled console output and interactive prompts for
// console commands.
//
//	io := cli.New()
//	io.Title("database migrations")
//	io.Table([]string{"Version", "Applied"}, rows)
//	if ok, _ := io.Confirm("Roll back?", false); ok {
//	    io.Success("Rolled back to %d", version)
//	}
//
// Styles are rendered through lipgloss and drop to plain text when the
// output is not a terminal or WithNoColor is set.
package cli
