// Command consolectl is the terminal console for the watchtower API. It keeps
// a session on disk and checks the shared access table before every call.
package main

func main() {
	Execute()
}
