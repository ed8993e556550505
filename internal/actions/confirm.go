package actions

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// ConfirmFunc decides whether the planned pull requests may be opened
type ConfirmFunc func(result *PersistResult) (bool, error)

// SurveyConfirm asks on the terminal before any pull request is opened
func SurveyConfirm(result *PersistResult) (bool, error) {
	plans := result.Plans()
	if len(plans) == 0 {
		return false, nil
	}

	confirmed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Open %d pull request(s)?", len(plans)),
		Help:    "Each repository gets one branch and one pull request containing all of its files",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, fmt.Errorf("failed to prompt for confirmation: %w", err)
	}

	return confirmed, nil
}
