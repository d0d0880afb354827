// Command mailmd converts HTML and email HTML into Markdown.
package main

import "github.com/gaurav-prasanna/mailmd/cmd"

func main() {
	cmd.Execute()
}
