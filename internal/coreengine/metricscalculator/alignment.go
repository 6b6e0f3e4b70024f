package metricscalculator

// AlignmentOp labels a single step in a word-level alignment.
type AlignmentOp string

const (
	OpCorrect      AlignmentOp = "correct"
	OpSubstitution AlignmentOp = "substitution"
	OpInsertion    AlignmentOp = "insertion"
	OpDeletion     AlignmentOp = "deletion"
)

// AlignmentPair is one aligned step between the reference and hypothesis
// token streams. Reference is empty for insertions, Hypothesis for deletions.
type AlignmentPair struct {
	Reference  string      `json:"reference"`
	Hypothesis string      `json:"hypothesis"`
	Op         AlignmentOp `json:"op"`
}

// Alignment is the result of the word-level edit-distance computation.
type Alignment struct {
	Distance      int
	Pairs         []AlignmentPair
	Correct       int
	Substitutions int
	Insertions    int
	Deletions     int
}

// AlignWords computes the minimum-edit-distance alignment between reference
// and hypothesis token sequences using the classic O(m*n) dynamic program
// with unit costs. A parallel operations matrix records which choice won each
// cell; on cost ties substitution is preferred over insertion, and insertion
// over deletion (fixed by evaluation order below).
func AlignWords(reference, hypothesis []string) *Alignment {
	m, n := len(reference), len(hypothesis)

	dist := make([][]int, m+1)
	ops := make([][]AlignmentOp, m+1)
	for i := 0; i <= m; i++ {
		dist[i] = make([]int, n+1)
		ops[i] = make([]AlignmentOp, n+1)
	}
	dist[0][0] = 0
	for i := 1; i <= m; i++ {
		dist[i][0] = i
		ops[i][0] = OpDeletion
	}
	for j := 1; j <= n; j++ {
		dist[0][j] = j
		ops[0][j] = OpInsertion
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if reference[i-1] == hypothesis[j-1] {
				dist[i][j] = dist[i-1][j-1]
				ops[i][j] = OpCorrect
				continue
			}
			sub := dist[i-1][j-1] + 1
			ins := dist[i][j-1] + 1
			del := dist[i-1][j] + 1

			best, op := sub, OpSubstitution
			if ins < best {
				best, op = ins, OpInsertion
			}
			if del < best {
				best, op = del, OpDeletion
			}
			dist[i][j] = best
			ops[i][j] = op
		}
	}

	a := &Alignment{Distance: dist[m][n]}
	// Backtrack from (m,n) to (0,0); steps come out reversed.
	var rev []AlignmentPair
	for i, j := m, n; i > 0 || j > 0; {
		switch ops[i][j] {
		case OpCorrect:
			rev = append(rev, AlignmentPair{Reference: reference[i-1], Hypothesis: hypothesis[j-1], Op: OpCorrect})
			a.Correct++
			i--
			j--
		case OpSubstitution:
			rev = append(rev, AlignmentPair{Reference: reference[i-1], Hypothesis: hypothesis[j-1], Op: OpSubstitution})
			a.Substitutions++
			i--
			j--
		case OpInsertion:
			rev = append(rev, AlignmentPair{Hypothesis: hypothesis[j-1], Op: OpInsertion})
			a.Insertions++
			j--
		default: // deletion
			rev = append(rev, AlignmentPair{Reference: reference[i-1], Op: OpDeletion})
			a.Deletions++
			i--
		}
	}
	a.Pairs = make([]AlignmentPair, len(rev))
	for k := range rev {
		a.Pairs[k] = rev[len(rev)-1-k]
	}
	return a
}
