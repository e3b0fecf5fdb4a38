// Command projectgen turns a natural-language prompt into a complete project
// on disk by driving a sequence of LLM agents.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
