package plan

import (
	"fmt"

	"github.com/mxcd/tpd-github/internal/template"
)

// RepoBatch holds the actions destined for one repository, in input order
type RepoBatch struct {
	Repo    string
	Actions []template.Action
}

// GroupByRepo partitions actions per destination repository.
// Batches are returned in the order their repository first appears.
func GroupByRepo(actions []template.Action) ([]*RepoBatch, error) {
	batchMap := make(map[string]*RepoBatch)
	batches := make([]*RepoBatch, 0)

	for i, action := range actions {
		if action == nil || action.RepoName() == "" {
			return nil, fmt.Errorf("action %d has no destination repository", i)
		}

		batch, exists := batchMap[action.RepoName()]
		if !exists {
			batch = &RepoBatch{
				Repo:    action.RepoName(),
				Actions: make([]template.Action, 0),
			}
			batchMap[action.RepoName()] = batch
			batches = append(batches, batch)
		}

		batch.Actions = append(batch.Actions, action)
	}

	return batches, nil
}
