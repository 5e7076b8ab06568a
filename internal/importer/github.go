package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/zulandar/spellbook/internal/catalog"
	"golang.org/x/oauth2"
)

// GitHubSourceName is stored on every spell read from a repository dump.
const GitHubSourceName = "github"

// GitHubOpts locates a 5e-database style spell dump.
type GitHubOpts struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
	// Token is optional; anonymous requests are rate limited harder.
	Token string
}

// GitHub reads a JSON array of SRD spells from a repository file.
type GitHub struct {
	client *github.Client
	opts   GitHubOpts
}

// NewGitHub returns a GitHub source. A nil client is built from opts.Token.
func NewGitHub(ctx context.Context, client *github.Client, opts GitHubOpts) (*GitHub, error) {
	if opts.Owner == "" || opts.Repo == "" || opts.Path == "" {
		return nil, fmt.Errorf("importer: github owner, repo and path are required")
	}
	if client == nil {
		if opts.Token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
			client = github.NewClient(oauth2.NewClient(ctx, ts))
		} else {
			client = github.NewClient(nil)
		}
	}
	return &GitHub{client: client, opts: opts}, nil
}

// Name implements Source.
func (g *GitHub) Name() string { return "github" }

// Fetch implements Source.
func (g *GitHub) Fetch(ctx context.Context) ([]catalog.Spell, error) {
	var getOpts *github.RepositoryContentGetOptions
	if g.opts.Ref != "" {
		getOpts = &github.RepositoryContentGetOptions{Ref: g.opts.Ref}
	}
	rc, _, err := g.client.Repositories.DownloadContents(ctx, g.opts.Owner, g.opts.Repo, g.opts.Path, getOpts)
	if err != nil {
		return nil, fmt.Errorf("importer: github download %s/%s/%s: %w", g.opts.Owner, g.opts.Repo, g.opts.Path, err)
	}
	defer rc.Close()

	spells, err := decodeSRDDump(rc, g.fileURL())
	if err != nil {
		return nil, fmt.Errorf("importer: github %s: %w", g.opts.Path, err)
	}
	return spells, nil
}

func (g *GitHub) fileURL() string {
	ref := g.opts.Ref
	if ref == "" {
		ref = "HEAD"
	}
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", g.opts.Owner, g.opts.Repo, ref, g.opts.Path)
}

type srdRef struct {
	Index string `json:"index"`
	Name  string `json:"name"`
}

type srdSpell struct {
	Index         string   `json:"index"`
	Name          string   `json:"name"`
	Level         int      `json:"level"`
	School        srdRef   `json:"school"`
	Ritual        bool     `json:"ritual"`
	Concentration bool     `json:"concentration"`
	CastingTime   string   `json:"casting_time"`
	Range         string   `json:"range"`
	Components    []string `json:"components"`
	Material      string   `json:"material"`
	Duration      string   `json:"duration"`
	Desc          []string `json:"desc"`
	HigherLevel   []string `json:"higher_level"`
	Classes       []srdRef `json:"classes"`
}

// decodeSRDDump reads the 5e-database spell array. Each spell's URL is the
// file URL with the spell index as fragment, which keeps re-imports stable.
func decodeSRDDump(r io.Reader, fileURL string) ([]catalog.Spell, error) {
	var raw []srdSpell
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	spells := make([]catalog.Spell, 0, len(raw))
	for _, s := range raw {
		if s.Index == "" || s.Name == "" {
			continue
		}
		classes := make([]string, 0, len(s.Classes))
		for _, c := range s.Classes {
			classes = append(classes, c.Name)
		}
		components := strings.Join(s.Components, ", ")
		if s.Material != "" {
			components += " (" + s.Material + ")"
		}
		spells = append(spells, catalog.Spell{
			Name:          s.Name,
			Level:         s.Level,
			School:        s.School.Name,
			Ritual:        s.Ritual,
			Concentration: s.Concentration,
			CastingTime:   s.CastingTime,
			Range:         s.Range,
			Components:    components,
			Material:      s.Material,
			Duration:      s.Duration,
			Classes:       strings.Join(classes, ", "),
			Description:   strings.Join(s.Desc, "\n"),
			HigherLevel:   strings.Join(s.HigherLevel, "\n"),
			URL:           fileURL + "#" + s.Index,
			Source:        GitHubSourceName,
		})
	}
	return spells, nil
}
