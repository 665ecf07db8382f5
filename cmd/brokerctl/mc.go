package main

import (
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/spf13/cobra"
)

// mcAlias is the fixed alias name brokerctl configures for the real mc
// binary before handing off to it.
const mcAlias = "brokerctl"

// newMCCommand implements spec §6's `mc <args...>`: it finds the first
// "owner/name/..." style argument, resolves it the same way the HTTP
// search surface does, mints scoped credentials for the node backing
// that workspace, points an mc alias at the node, and rewrites the
// argument to alias/bucket/prefix/... before exec'ing the real mc
// binary with the rest of the arguments untouched.
func newMCCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "mc [mc-args...]",
		Short:              "run mc against a workspace, minting scoped credentials first",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}

			termIdx, term := findWorkspaceTerm(args)
			if termIdx == -1 {
				return fatalf("no owner/name workspace argument found among: %v", args)
			}

			alias, rewritten, env, err := resolveMCInvocation(client, args, termIdx, term)
			if err != nil {
				return err
			}

			aliasCmd := exec.Command("mc", "alias", "set", alias, env.endpoint, env.accessKeyID, env.secretAccessKey)
			aliasCmd.Stdout = os.Stdout
			aliasCmd.Stderr = os.Stderr
			if err := aliasCmd.Run(); err != nil {
				return fatalf("mc alias set failed: %w", err)
			}

			realCmd := exec.Command("mc", rewritten...)
			realCmd.Stdin = os.Stdin
			realCmd.Stdout = os.Stdout
			realCmd.Stderr = os.Stderr
			realCmd.Env = os.Environ()
			if env.sessionToken != "" {
				realCmd.Env = append(realCmd.Env, "AWS_SESSION_TOKEN="+env.sessionToken)
			}
			return realCmd.Run()
		},
	}
	return cmd
}

// findWorkspaceTerm returns the index and value of the first
// non-flag, slash-containing argument, brokerctl's heuristic for
// locating the owner/name/... operand among mc's own flags.
func findWorkspaceTerm(args []string) (int, string) {
	for i, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		if strings.Contains(a, "/") {
			return i, a
		}
	}
	return -1, ""
}

type mcCredentials struct {
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
}

// resolveMCInvocation resolves term through /api/token/search, mints
// credentials for the node backing the resolved workspace, and
// returns the rewritten argument list with term replaced by
// alias/bucket/prefix/innerpath.
func resolveMCInvocation(client *apiClient, args []string, termIdx int, term string) (string, []string, mcCredentials, error) {
	var result struct {
		Tokens []struct {
			Token struct {
				AccessKeyID     string `json:"AccessKeyID"`
				SecretAccessKey string `json:"SecretAccessKey"`
				SessionToken    string `json:"SessionToken"`
				StorageNodeID   string `json:"StorageNodeID"`
			} `json:"Token"`
			Node struct {
				ID     string `json:"ID"`
				APIURL string `json:"APIURL"`
			} `json:"Node"`
		} `json:"Tokens"`
		Workspaces map[string]struct {
			Workspace struct {
				RootID string `json:"RootID"`
			} `json:"Workspace"`
			InnerPath string `json:"InnerPath"`
			Found     bool   `json:"Found"`
		} `json:"Workspaces"`
	}
	if err := client.post("/api/token/search", map[string]interface{}{"terms": []string{term}}, &result); err != nil {
		return "", nil, mcCredentials{}, err
	}

	match, ok := result.Workspaces[term]
	if !ok || !match.Found {
		return "", nil, mcCredentials{}, fatalf("no workspace matches %q", term)
	}

	var root struct {
		Bucket   string `json:"Bucket"`
		BasePath string `json:"BasePath"`
		NodeID   string `json:"NodeID"`
	}
	if err := client.get("/api/root/"+match.Workspace.RootID, &root); err != nil {
		return "", nil, mcCredentials{}, err
	}

	var creds mcCredentials
	for _, issued := range result.Tokens {
		if issued.Node.ID != root.NodeID {
			continue
		}
		creds = mcCredentials{
			endpoint:        issued.Node.APIURL,
			accessKeyID:     issued.Token.AccessKeyID,
			secretAccessKey: issued.Token.SecretAccessKey,
			sessionToken:    issued.Token.SessionToken,
		}
		break
	}
	if creds.accessKeyID == "" {
		return "", nil, mcCredentials{}, fatalf("no token was issued for workspace %q's storage node", term)
	}

	rewritten := append([]string(nil), args...)
	rewritten[termIdx] = mcAlias + "/" + path.Join(root.Bucket, root.BasePath, match.InnerPath)
	return mcAlias, rewritten, creds, nil
}
