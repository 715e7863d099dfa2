package usecase

import "sort"

type fusedCandidate struct {
	chunkID  string
	score    float64
	bestRank int
}

// fuseRanksRRF merges two ranked id lists with Reciprocal Rank Fusion: each
// list contributes 1/(k+rank) per candidate, rank being the 1-based position.
// Ties break on the candidate's best single-list rank, then on chunk id, so
// the output order is fully deterministic.
func fuseRanksRRF(keyword, vector []string, rrfK int) []fusedCandidate {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]fusedCandidate, len(keyword)+len(vector))
	addList := func(ids []string) {
		for i, id := range ids {
			rank := i + 1
			candidate, ok := acc[id]
			if !ok {
				candidate = fusedCandidate{chunkID: id, bestRank: rank}
			} else if rank < candidate.bestRank {
				candidate.bestRank = rank
			}
			candidate.score += 1.0 / float64(rrfK+rank)
			acc[id] = candidate
		}
	}

	addList(keyword)
	addList(vector)

	out := make([]fusedCandidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].bestRank != out[j].bestRank {
			return out[i].bestRank < out[j].bestRank
		}
		return out[i].chunkID < out[j].chunkID
	})

	return out
}

func trimCandidates(candidates []fusedCandidate, limit int) []fusedCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
