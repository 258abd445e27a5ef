package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-org-insights/internal/config"
	"github.com/kurihiro0119/github-org-insights/internal/crawler"
	"github.com/kurihiro0119/github-org-insights/internal/domain"
	"github.com/kurihiro0119/github-org-insights/internal/onboarding"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
	"github.com/kurihiro0119/github-org-insights/internal/storage/memory"
	"github.com/kurihiro0119/github-org-insights/internal/storage/postgres"
	"github.com/kurihiro0119/github-org-insights/internal/storage/sqlite"
)

var (
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "org-insights",
	Short: "GitHub organization insights tool",
	Long: `A CLI tool for crawling and inspecting GitHub organization profiles.

The crawler walks an organization's members, repositories, teams and external
contributions through the GitHub GraphQL API, respecting its cost budget, and
stores the accumulated profile locally.`,
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [org]",
	Short: "Crawl an organization",
	Long:  `Run a full crawl of a GitHub organization and store the resulting profile.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

var showCmd = &cobra.Command{
	Use:   "show [org]",
	Short: "Show the organization detail record",
	Long:  `Display the stored profile of a crawled GitHub organization.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowDetail,
}

var showMembersCmd = &cobra.Command{
	Use:   "members [org]",
	Short: "Show organization members",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowMembers,
}

var showReposCmd = &cobra.Command{
	Use:   "repos [org]",
	Short: "Show organization repositories",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRepos,
}

var showTeamsCmd = &cobra.Command{
	Use:   "teams [org]",
	Short: "Show organization teams",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowTeams,
}

var showExternalCmd = &cobra.Command{
	Use:   "external [org]",
	Short: "Show external repositories members contribute to",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowExternal,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showMembersCmd)
	showCmd.AddCommand(showReposCmd)
	showCmd.AddCommand(showTeamsCmd)
	showCmd.AddCommand(showExternalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	case "memory":
		return memory.NewMemoryStorage(), nil
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	org := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	budget := crawler.NewRateBudget()
	factory := crawler.NewRequestFactory(cfg.CrawlWindowDays, cfg.ExternalRepoBatchSize)
	client := crawler.NewGitHubClient(cfg.GitHubToken, cfg.GitHubGraphQLURL)
	processors := crawler.NewProcessors(store, factory, budget, logger)
	scheduler := crawler.NewScheduler(store, client, budget, processors, logger, cfg.ProcessingRate)
	tracker := onboarding.NewTracker(store, factory, budget, cfg.StaleAfter, logger)

	ctx := context.Background()
	fmt.Printf("Crawling organization: %s\n", org)

	if _, err := tracker.Check(ctx, org); err != nil {
		return err
	}

	name := domain.NormalizeOrganizationName(org)
	for {
		if err := scheduler.Tick(ctx); err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}

		progress, err := store.FindProgressByOrganization(ctx, name)
		if err != nil {
			return err
		}
		if progress == nil {
			pending, err := store.FindQueriesByStatusAndOrganization(ctx, domain.QueryStatusPending, name)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				break
			}
			continue
		}
		switch progress.State {
		case domain.CrawlStateInvalid:
			return fmt.Errorf("organization %q does not exist", org)
		case domain.CrawlStateAuthFailed:
			return fmt.Errorf("upstream rejected the configured token")
		}
		fmt.Printf("\rProgress: %d/%d request types", progress.FinishedTypes, progress.TotalTypes)

		if budget.IsExhausted() {
			fmt.Printf("\nRate budget exhausted, waiting until %s\n", budget.ResetAt().Format(time.RFC3339))
			time.Sleep(time.Until(budget.ResetAt()))
		}
		time.Sleep(cfg.ProcessingRate)
	}

	fmt.Println("\nCrawl complete!")
	return nil
}

func loadProfile(org string) (*domain.OrganizationProfile, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	closer := func() { store.Close() }

	profile, err := store.FindProfileByOrganization(context.Background(), domain.NormalizeOrganizationName(org))
	if err != nil {
		closer()
		return nil, nil, err
	}
	if profile == nil {
		closer()
		return nil, nil, fmt.Errorf("no profile stored for %q, run 'org-insights crawl %s' first", org, org)
	}
	return profile, closer, nil
}

func renderJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runShowDetail(cmd *cobra.Command, args []string) error {
	profile, closer, err := loadProfile(args[0])
	if err != nil {
		return err
	}
	defer closer()

	if outputJSON {
		return renderJSON(profile.Detail)
	}

	detail := profile.Detail
	if detail == nil {
		return fmt.Errorf("profile for %q has no detail record yet", args[0])
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Name", detail.Name})
	table.Append([]string{"Description", detail.Description})
	table.Append([]string{"Location", detail.Location})
	table.Append([]string{"URL", detail.URL})
	table.Append([]string{"Website", detail.WebsiteURL})
	table.Append([]string{"Members", fmt.Sprintf("%d", detail.MemberCount)})
	table.Append([]string{"Repositories", fmt.Sprintf("%d", detail.RepositoryCount)})
	table.Append([]string{"Teams", fmt.Sprintf("%d", detail.TeamCount)})
	table.Append([]string{"External Contributions", fmt.Sprintf("%d", detail.ExternalRepoContributions)})
	table.Render()

	return nil
}

func runShowMembers(cmd *cobra.Command, args []string) error {
	profile, closer, err := loadProfile(args[0])
	if err != nil {
		return err
	}
	defer closer()

	if outputJSON {
		return renderJSON(profile.Members)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Login", "Name", "Commits", "Issues", "PRs"})
	for _, m := range profile.Members {
		table.Append([]string{
			m.Login,
			m.Name,
			fmt.Sprintf("%d", m.CommitCount),
			fmt.Sprintf("%d", m.IssueCount),
			fmt.Sprintf("%d", m.PullRequestCount),
		})
	}
	table.Render()

	return nil
}

func repoTable(repos map[string]*domain.Repository) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Language", "License", "Stars", "Forks", "Commits"})
	for _, r := range repos {
		table.Append([]string{
			r.Name,
			r.Language,
			r.License,
			fmt.Sprintf("%d", r.Stars),
			fmt.Sprintf("%d", r.Forks),
			fmt.Sprintf("%d", r.CommitActivity.Sum()),
		})
	}
	table.Render()
}

func runShowRepos(cmd *cobra.Command, args []string) error {
	profile, closer, err := loadProfile(args[0])
	if err != nil {
		return err
	}
	defer closer()

	if outputJSON {
		return renderJSON(profile.Repositories)
	}
	repoTable(profile.Repositories)
	return nil
}

func runShowExternal(cmd *cobra.Command, args []string) error {
	profile, closer, err := loadProfile(args[0])
	if err != nil {
		return err
	}
	defer closer()

	if outputJSON {
		return renderJSON(profile.ExternalRepos)
	}
	repoTable(profile.ExternalRepos)
	return nil
}

func runShowTeams(cmd *cobra.Command, args []string) error {
	profile, closer, err := loadProfile(args[0])
	if err != nil {
		return err
	}
	defer closer()

	if outputJSON {
		return renderJSON(profile.Teams)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Team", "Members", "Repositories"})
	for _, t := range profile.Teams {
		var logins []string
		for _, m := range t.Members {
			logins = append(logins, m.Login)
		}
		table.Append([]string{
			t.Name,
			strings.Join(logins, ", "),
			fmt.Sprintf("%d", len(t.Repositories)),
		})
	}
	table.Render()

	return nil
}
