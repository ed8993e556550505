package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/mxcd/tpd-github/internal/template"
)

// BranchPrefix is prepended to every generated branch name
const BranchPrefix = "ci_"

// Digest returns the hex SHA-256 of the inputs after sorting them.
// The result does not depend on the order of inputs. The slice is not modified.
func Digest(inputs []string) string {
	sorted := make([]string, len(inputs))
	copy(sorted, inputs)
	sort.Strings(sorted)

	h := sha256.New()
	for _, input := range sorted {
		h.Write([]byte(input))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BranchName derives the pull request branch from the content of a batch
func BranchName(actions []template.Action) string {
	inputs := make([]string, 0, len(actions))
	for _, action := range actions {
		inputs = append(inputs, action.HashInput())
	}
	return BranchPrefix + Digest(inputs)
}
