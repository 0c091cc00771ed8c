package domain

// Attribute is a hashed identifying trait shared between transactions, such as
// the device used. Transactions sharing an attribute are linked when the index
// is exported to the graph.
type Attribute struct {
	Type            string
	Value           string
	RawValue        string
	ConfidenceScore float64
}
