package judge

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/skillbench/skillbench/pkg/scenario"
)

// JudgeAll fans out one goroutine per job, joins on all of them, and
// returns the results in job order. Sibling judges are never cancelled
// by one failure; failures are collected and surfaced together only
// after every judge has returned. Any failure voids the whole set;
// there is no partial aggregation.
func (r *Runner) JudgeAll(ctx context.Context, jobs []Job, sc *scenario.Scenario, agentOutput string) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var merr *multierror.Error

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()

			result, err := r.Judge(ctx, job, sc, agentOutput)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				merr = multierror.Append(merr, err)
				return
			}
			results[i] = result
		}(i, job)
	}

	wg.Wait()

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	return results, nil
}
