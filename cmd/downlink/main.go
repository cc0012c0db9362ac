// Command downlink decodes and manipulates CCSDS spacecraft downlink
// telemetry: frame synchronization and Reed-Solomon correction, Space Packet
// reassembly, multi-file merging, filtering, and summarization.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
