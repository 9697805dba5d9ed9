// Package simulation runs a leveraged buy-and-hold investment simulation for
// a listed property: level-payment loan, ten years of operating cash flows,
// a sale at an exit cap rate and the six-criterion investment decision.
//
// All amounts are yen. Rents and fees on Input are monthly; cash flows are
// annual.
package simulation
