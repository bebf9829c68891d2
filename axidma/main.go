// Command axidma runs DMA transfers on a simulated memory system.
package main

import "github.com/sarchlab/axidma/axidma/cmd"

func main() {
	cmd.Execute()
}
