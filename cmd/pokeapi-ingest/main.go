// Package main provides the entry point for the pokeapi-ingest CLI.
//
// pokeapi-ingest fetches one listing page of Pokémon from PokéAPI, fetches
// every listed detail document, flattens them into a table, prints a summary
// and writes the table as CSV.
//
// Usage:
//
//	pokeapi-ingest [fetch] [--limit N] [--offset N] [--output FILE]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
