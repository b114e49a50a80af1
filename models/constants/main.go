package constants

/*
Defines a set of base level
constants and enums to be used
throughout the portal and its
associated services.
*/
type Pipeline string
type ResultsFormat string
type Genome string

type StorageProvider string
type DatabaseProvider string
