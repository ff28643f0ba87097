package action

import (
	"fmt"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/kballard/go-shellquote"
)

// Kinit is the action obtaining a Kerberos ticket on a secured cluster.
// A keytab is preferred over a password.
func Kinit() Action {
	return Action{
		Name: "Kerberos ticket",
		Command: func(c *types.Cluster) string {
			k := c.Kerberos
			var kinit string
			if k.KeytabPath != "" {
				kinit = "kinit " + shellquote.Join("-kt", k.KeytabPath, k.Principal)
			} else {
				kinit = fmt.Sprintf("echo %s | kinit %s", shellquote.Join(k.Password), shellquote.Join(k.Principal))
			}
			return kinit + " && klist"
		},
		Succeeded: Contains("Default principal"),
	}
}
