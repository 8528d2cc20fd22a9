package sink

// Row is one flattened review ready to be persisted. Keys are column names.
type Row map[string]interface{}

// Sink persists whole tables under a file name chosen by the caller
// (e.g. "2024_05_01_10_00_00_x_reviews.csv").
//
// Returning an error allows the orchestrator to retry through RetrySink.
type Sink interface {
	Write(name string, table *Table) error
}
