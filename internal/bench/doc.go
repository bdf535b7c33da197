// Package bench builds the routed action-sequence benchmark graph and times
// how long passthrough splitting takes on it.
//
// The model cycles a memory through a fixed sequence of states using a basal
// ganglia and thalamus; the last action routes the vision buffer into memory.
// Its buffers and routing relays are D-wide passthrough nodes, so any D above
// the width bound exercises the splitter. No simulation is performed.
//
// Usage:
//
//	p := bench.DefaultParams()
//	p.Dimensions = 64
//	res, err := bench.Run(ctx, p, bench.Options{Store: gs, Label: "d64"})
package bench
