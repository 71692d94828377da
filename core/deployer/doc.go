// Package deployer materializes delegating instances at derived addresses.
//
// An instance is built privately, initialized with its owner and only then
// installed in the address space, so no other party can observe or
// initialize an unowned instance. Any failure leaves the address space as it
// was.
package deployer
