// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/bindsmith/services/binding/evidence"
)

// Job pairs one component's evidence with its generator addressing.
type Job struct {
	Evidence *evidence.Evidence
	Target   Target
}

// RunAll processes multiple components through a bounded worker pool.
//
// Description:
//
//	Each job gets its own sequential orchestration run; only distinct
//	components run concurrently. Results are returned in job order. An
//	exhausted retry budget is a normal per-job outcome and does not abort
//	the batch; only context cancellation stops it early.
//
// Inputs:
//   - ctx: Context for cancellation of the whole batch.
//   - jobs: Components to process.
//   - concurrency: Maximum simultaneous runs. Values < 1 mean 1.
//
// Outputs:
//   - []*Result: One result per job, index-aligned. Entries are nil only
//     for jobs whose run was canceled.
//   - error: The first context cancellation, if any.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []Job, concurrency int) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			res, err := o.Run(ctx, job.Evidence, job.Target)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
