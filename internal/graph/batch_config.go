package graph

// BatchConfig caps the rows sent in one UNWIND statement.
type BatchConfig struct {
	NodeBatchSize int
	EdgeBatchSize int
}

// DefaultBatchConfig suits repositories up to a few thousand files.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 1000,
		EdgeBatchSize: 5000,
	}
}

// chunkRange calls fn for each [start,end) window of size n over total items.
func chunkRange(total, n int, fn func(start, end int) error) error {
	if n <= 0 {
		n = total
	}
	for start := 0; start < total; start += n {
		end := start + n
		if end > total {
			end = total
		}
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
