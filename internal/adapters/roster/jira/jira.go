// Package jira lists active members of a Jira group as the roster.
package jira

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/okian/overtime/internal/adapters/atlassian"
	"github.com/okian/overtime/internal/adapters/roster"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/pkg/logger"
)

const (
	providerName = "jira"
	pageSize     = 50
	maxPages     = 200
)

// ErrNoGroup is returned when no group name was configured.
var ErrNoGroup = errors.New("jira roster: empty group name")

// Provider implements roster.Provider.
type Provider struct {
	client *atlassian.Client
	group  string
	logger logger.Logger
}

// New creates a provider for the named group.
func New(client *atlassian.Client, group string, log logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{client: client, group: group, logger: log}
}

// Name implements roster.Provider.
func (p *Provider) Name() string { return providerName }

type memberPage struct {
	StartAt    int  `json:"startAt"`
	MaxResults int  `json:"maxResults"`
	Total      int  `json:"total"`
	IsLast     bool `json:"isLast"`
	Values     []struct {
		AccountID   string `json:"accountId"`
		DisplayName string `json:"displayName"`
		Active      bool   `json:"active"`
	} `json:"values"`
}

// ListPeople implements roster.Provider.
func (p *Provider) ListPeople(ctx context.Context) roster.Result {
	if p.group == "" {
		return roster.Unavailable(ErrNoGroup)
	}

	people := []model.Person{}
	seen := make(map[string]struct{})
	startAt := 0
	for range maxPages {
		q := url.Values{}
		q.Set("groupname", p.group)
		q.Set("includeInactiveUsers", "false")
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(pageSize))

		var page memberPage
		if err := p.client.GetJSON(ctx, "/rest/api/3/group/member", q, &page); err != nil {
			p.logger.Warn(ctx, "jira group lookup failed",
				logger.String("group", p.group),
				logger.Error(err))
			return roster.Unavailable(err)
		}
		for _, v := range page.Values {
			if !v.Active || v.AccountID == "" {
				continue
			}
			if _, dup := seen[v.AccountID]; dup {
				continue
			}
			seen[v.AccountID] = struct{}{}
			people = append(people, model.Person{ID: v.AccountID, DisplayName: v.DisplayName})
		}
		if page.IsLast || len(page.Values) == 0 {
			break
		}
		startAt += len(page.Values)
	}
	return roster.Available(people)
}
