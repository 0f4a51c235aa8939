// Varasto - Inventory Cache Engine
// Walk. Snapshot. Query.
package main

func main() {
	Execute()
}
