package models

// All lists the ledger models migrated at startup and in tests.
var All = []any{
	&Task{},
	&Assignment{},
	&Submission{},
}
