package convert

// State tracks a topic through the pipeline. Transitions are strictly
// ordered: PENDING → READING → FLATTENING → WRITING → DONE or FAILED.
// FAILED is terminal; a topic is never retried within a run.
type State uint8

const (
	StatePending State = iota
	StateReading
	StateFlattening
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReading:
		return "reading"
	case StateFlattening:
		return "flattening"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TopicResult is the per-topic outcome of a run.
type TopicResult struct {
	Topic string
	State State
	// Rows written; 0 when the topic failed.
	Rows int
	// File is the base name of the written output file.
	File string
	// DriftRows counts rows that carried columns outside the schema.
	DriftRows int
	Err       error
}

// Summary aggregates all topic results of one run.
type Summary struct {
	Topics []TopicResult
}

// Failed returns the number of topics that did not produce an output file.
func (s *Summary) Failed() int {
	n := 0
	for _, res := range s.Topics {
		if res.State == StateFailed {
			n++
		}
	}
	return n
}
