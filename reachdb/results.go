package reachdb

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
)

// StudyResults are aggregate statistics over a database. They are derived on demand and never
// stored.
type StudyResults struct {
	Total     int
	Reachable int
	// Coverage is Reachable/Total, 0 for an empty database.
	Coverage   float64
	TotalScore float64
	// MeanScore is TotalScore/Total; unreachable poses contribute 0.
	MeanScore   float64
	MedianScore float64
	// MeanReachableScore averages only the reached poses.
	MeanReachableScore float64
}

// Aggregate computes the study results in a single pass over the records.
func (db *Database) Aggregate() StudyResults {
	db.mu.RLock()
	scores := make(stats.Float64Data, len(db.records))
	reachableScores := make(stats.Float64Data, 0, len(db.records))
	var res StudyResults
	for i, rec := range db.records {
		scores[i] = rec.Score
		res.TotalScore += rec.Score
		if rec.Reachable {
			res.Reachable++
			reachableScores = append(reachableScores, rec.Score)
		}
	}
	db.mu.RUnlock()

	res.Total = len(scores)
	if res.Total == 0 {
		return res
	}
	res.Coverage = float64(res.Reachable) / float64(res.Total)
	res.MeanScore = res.TotalScore / float64(res.Total)
	// Both only fail on empty input, which is excluded above.
	res.MedianScore, _ = stats.Median(scores)
	if len(reachableScores) > 0 {
		res.MeanReachableScore, _ = stats.Mean(reachableScores)
	}
	return res
}

// String renders the results as a table.
func (res StudyResults) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Poses", res.Total},
		{"Reached", res.Reachable},
		{"Coverage", fmt.Sprintf("%.2f%%", 100*res.Coverage)},
		{"Total score", fmt.Sprintf("%.4f", res.TotalScore)},
		{"Mean score", fmt.Sprintf("%.4f", res.MeanScore)},
		{"Median score", fmt.Sprintf("%.4f", res.MedianScore)},
		{"Mean reached score", fmt.Sprintf("%.4f", res.MeanReachableScore)},
	})
	return t.Render()
}
