// Package dice hosts the dice gRPC service: stateless evaluation and
// explanation of dice expressions plus an optional history of persisted
// rolls with signed receipts.
package dice
