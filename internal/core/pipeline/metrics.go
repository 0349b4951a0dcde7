package pipeline

// Stats aggregates pipeline throughput. Rates and averages are derived at
// read time from the raw counters.
type Stats struct {
	TotalProcessed int     `json:"total_processed"`
	Successful     int     `json:"successful"`
	Failed         int     `json:"failed"`
	Cancelled      int     `json:"cancelled"`
	Active         int     `json:"active"`
	QueueDepth     int     `json:"queue_depth"`
	SuccessRate    float64 `json:"success_rate"`
	AverageSeconds float64 `json:"average_processing_seconds"`
}

// Metrics reports current counters plus derived success rate and average
// processing time.
func (p *Pipeline) Metrics() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Stats{
		TotalProcessed: p.stats.processed,
		Successful:     p.stats.succeeded,
		Failed:         p.stats.failed,
		Cancelled:      p.stats.cancelled,
		Active:         len(p.active),
		QueueDepth:     len(p.jobs),
	}
	if s.TotalProcessed > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalProcessed)
		s.AverageSeconds = p.stats.duration.Seconds() / float64(s.TotalProcessed)
	}
	return s
}
