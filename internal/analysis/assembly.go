package analysis

// assemble is phase 4: bucket keys are rendered for display and the
// diagnostics are frozen in their deterministic order.
func (r *run) assemble() *Report {
	report := &Report{
		RunID:       r.id,
		Task:        r.plan.Task,
		Split:       r.split,
		Samples:     r.samples.Len(),
		Overall:     r.overall,
		FineGrained: make([]FeaturePerformance, 0, len(r.bucketed)),
		Enriched:    r.samples,
	}
	for i, fb := range r.bucketed {
		fp := FeaturePerformance{Feature: fb.feature.Name, Buckets: make([]BucketPerformance, 0, len(r.fine[i]))}
		for _, res := range r.fine[i] {
			fp.Buckets = append(fp.Buckets, BucketPerformance{
				Bucket:       res.key.Beautify(),
				Count:        res.count,
				Performances: res.records,
			})
		}
		report.FineGrained = append(report.FineGrained, fp)
	}
	if len(r.datasetValues) > 0 {
		report.DatasetFeatures = r.datasetValues
	}
	report.Diagnostics = r.diags.List()
	return report
}
