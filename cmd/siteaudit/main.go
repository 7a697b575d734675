// Command siteaudit crawls a website and scores it against a QA rule catalog.
//
// Usage:
//
//	siteaudit scan https://clinic.example --partner western --phase full
//	siteaudit rules list --partner western --phase final
//	siteaudit rules validate --catalog rules.yaml
//
// Configuration is read from siteaudit.yaml and SITEAUDIT_* environment
// variables; see internal/config for the keys.
package main

import (
	"os"

	"github.com/JakeFAU/siteaudit/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
