// Package github implements the GitHub issue-tracker notifier: each
// notification opens an issue in the configured repository.
package github

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/loonghao/notify-bridge-go/httpclient"
	"github.com/loonghao/notify-bridge-go/notifier"
	"github.com/loonghao/notify-bridge-go/schema"
)

// Name is the platform name this notifier registers under.
const Name = "github"

const apiVersion = "2022-11-28"

// Request is the GitHub notification schema.
type Request struct {
	schema.Base `mapstructure:",squash"`

	Owner string `mapstructure:"owner" json:"owner,omitempty"`
	Repo  string `mapstructure:"repo" json:"repo,omitempty"`
	Token string `mapstructure:"token" json:"token,omitempty"`

	Labels    []string `mapstructure:"labels" json:"labels,omitempty"`
	Assignees []string `mapstructure:"assignees" json:"assignees,omitempty"`
	Milestone int      `mapstructure:"milestone" json:"milestone,omitempty"`
}

// Validate requires the repository coordinates and an access token.
func (r *Request) Validate() error {
	if err := r.Base.Validate(); err != nil {
		return err
	}
	if err := schema.RequireString("owner", r.Owner); err != nil {
		return err
	}
	if err := schema.RequireString("repo", r.Repo); err != nil {
		return err
	}
	return schema.RequireString("token", r.Token)
}

// New constructs the GitHub notifier.
func New(cfg *httpclient.Config) (notifier.Notifier, error) {
	return notifier.New(notifier.Options{
		Name:       Name,
		Types:      []schema.MessageType{schema.TypeText, schema.TypeMarkdown},
		NewRequest: func() schema.Request { return &Request{} },
		Assemble:   assemble,
		Config:     cfg,
	})
}

func assemble(req schema.Request) (*notifier.Payload, error) {
	r := req.(*Request)

	// An explicit URL overrides the derived API endpoint, for GitHub
	// Enterprise installs.
	url := r.Target()
	if url == "" {
		url = fmt.Sprintf("https://api.github.com/repos/%s/%s/issues", r.Owner, r.Repo)
	}

	title := r.Title
	if title == "" {
		title = "New Issue"
	}

	body := map[string]any{
		"title": title,
		"body":  r.Content,
	}
	if len(r.Labels) > 0 {
		body["labels"] = r.Labels
	}
	if len(r.Assignees) > 0 {
		body["assignees"] = r.Assignees
	}
	if r.Milestone > 0 {
		body["milestone"] = r.Milestone
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("Authorization", "Bearer "+r.Token)
	header.Set("X-GitHub-Api-Version", apiVersion)
	for k, v := range r.Headers {
		header.Set(k, v)
	}

	return &notifier.Payload{URL: url, Header: header, Body: data}, nil
}
