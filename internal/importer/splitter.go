package importer

// Row is one raw CSV row before any validation or type conversion.
// All fields are kept as strings; the batch worker parses and filters them.
type Row struct {
	Name     string `json:"name"`
	Age      string `json:"age"`
	Position string `json:"position"`
	Salary   string `json:"salary"`
}

// Split chunks rows into ordered batches of at most size rows each.
// The last batch may be shorter. Zero input rows yields zero batches;
// callers must treat that as "no valid data", not as an empty success.
func Split(rows []Row, size int) [][]Row {
	if size <= 0 || len(rows) == 0 {
		return nil
	}

	batches := make([][]Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}

	return batches
}
