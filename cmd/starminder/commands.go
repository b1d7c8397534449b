package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/starminder/internal/embedding"
	"github.com/sakif/starminder/internal/github"
	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/pipeline"
	"github.com/sakif/starminder/internal/repository"
	sqliteRepo "github.com/sakif/starminder/internal/repository/sqlite"
	"github.com/sakif/starminder/internal/search"
	"github.com/sakif/starminder/internal/service"
)

func migrateCmd(a *app) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (latest by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureDBDir(a.cfg.DBPath); err != nil {
				return err
			}
			v, err := sqliteRepo.MigrateFile(a.cfg.DBPath, version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", okMark(), v)
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", -1, "target version; -1 is latest, 0 rolls everything back")
	return cmd
}

func setupSocialAppCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-social-app",
		Short: "Record the site and GitHub OAuth app from the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := service.NewSetupService(db, a.logger).EnsureSocialApp(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			printSetupResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// userFlags resolves the target user from --user (internal ID) or --login.
type userFlags struct {
	id    string
	login string
}

func (f *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "user", "", "internal user ID")
	cmd.Flags().StringVar(&f.login, "login", "", "GitHub username of a user who has signed in")
	cmd.MarkFlagsOneRequired("user", "login")
	cmd.MarkFlagsMutuallyExclusive("user", "login")
}

func (f *userFlags) resolve(cmd *cobra.Command, users *service.AuthService) (*model.User, error) {
	if f.id != "" {
		return users.GetUserByID(cmd.Context(), f.id)
	}
	return users.GetUserByLogin(cmd.Context(), f.login)
}

// lookupService serves user lookups; lookups never issue tokens.
func (a *app) lookupService(db *sqliteRepo.DB) *service.AuthService {
	return service.NewAuthService(db, nil, a.logger)
}

func importStarsCmd(a *app) *cobra.Command {
	var who userFlags

	cmd := &cobra.Command{
		Use:   "import-stars",
		Short: "Stage every repository the GITHUB_TOKEN owner has starred",
		Long: "Fetches the starred repositories of the account GITHUB_TOKEN belongs to and\n" +
			"stages them for the given user. Repositories already staged are skipped,\n" +
			"so the import can be re-run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.GitHubToken == "" {
				return errors.New("GITHUB_TOKEN is required to list starred repositories")
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := who.resolve(cmd, a.lookupService(db))
			if err != nil {
				return err
			}

			gh := github.NewClient(cmd.Context(), a.cfg.GitHubAPIURL, a.cfg.GitHubToken)
			starred, err := gh.ListStarred(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing starred repositories: %w", err)
			}

			res, err := service.NewStagingService(db, a.logger).StageAll(cmd.Context(), user.ID, starred)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s staged %d, skipped %d already staged (user %s)\n",
				okMark(), res.Staged, res.Skipped, user.Login)
			return nil
		},
	}
	who.register(cmd)
	return cmd
}

func promoteCmd(a *app) *cobra.Command {
	var who userFlags
	var size int

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Move the highest-priority staged stars into a new reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := who.resolve(cmd, a.lookupService(db))
			if err != nil {
				return err
			}
			if size <= 0 {
				size = a.cfg.ReminderSize
			}

			detail, err := service.NewStagingService(db, a.logger).Promote(cmd.Context(), user.ID, size)
			if err != nil {
				return err
			}
			return printReminder(cmd.OutOrStdout(), detail)
		},
	}
	who.register(cmd)
	cmd.Flags().IntVarP(&size, "size", "n", 0, "stars per reminder (REMINDER_SIZE when unset)")
	return cmd
}

func analyzeCmd(a *app) *cobra.Command {
	var limit, workers int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Fetch READMEs and embed stars that still need analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.EmbeddingsEnabled() {
				return errors.New("OPENAI_API_KEY is required for analysis")
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if workers <= 0 {
				workers = a.cfg.AnalysisWorkers
			}
			gh := github.NewClient(cmd.Context(), a.cfg.GitHubAPIURL, a.cfg.GitHubToken)
			runner := &pipeline.Runner{
				Stars:     db,
				Fetcher:   gh,
				Inspector: gh,
				Embedder:  embedding.NewClient(a.cfg.OpenAIBaseURL, a.cfg.OpenAIAPIKey, a.cfg.EmbeddingModel, a.cfg.EmbeddingDimensions),
				Analyses:  service.NewAnalysisService(db, a.cfg.EmbeddingDimensions, a.logger),
				Clusters:  service.NewClusterService(db, a.logger),
				Workers:   workers,
				Logger:    a.logger,
			}

			stats, err := runner.Run(cmd.Context(), limit)
			printStats(cmd.OutOrStdout(), stats)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", pipeline.DefaultBatch, "maximum stars to analyze in this run")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent workers (ANALYSIS_WORKERS when unset)")
	return cmd
}

func remindersCmd(a *app) *cobra.Command {
	var who userFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List a user's reminders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := who.resolve(cmd, a.lookupService(db))
			if err != nil {
				return err
			}
			reminders, err := service.NewReminderService(db, a.logger).List(cmd.Context(), user.ID, repository.ListOptions{Limit: limit})
			if err != nil {
				return err
			}
			return printReminders(cmd.OutOrStdout(), reminders)
		},
	}
	who.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum reminders to show")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var who userFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Full-text search over a user's reminded stars and their READMEs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := who.resolve(cmd, a.lookupService(db))
			if err != nil {
				return err
			}

			index, err := search.NewIndex()
			if err != nil {
				return err
			}
			defer index.Close()
			if _, err := index.Rebuild(cmd.Context(), db); err != nil {
				return err
			}

			results, err := index.Search(user.ID, args[0], limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No results found")
				return nil
			}
			return printSearchResults(cmd.OutOrStdout(), results)
		},
	}
	who.register(cmd)
	cmd.Flags().IntVarP(&limit, "k", "k", search.DefaultLimit, "number of results")
	return cmd
}

func setPriorityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-priority [temp-star-id] [score]",
		Short: "Record an externally computed priority for a staged star",
		Long: "Scores come from whatever ranking step you run outside starminder; promote\n" +
			"picks the highest-scored staged stars first.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("score %q is not a number", args[1])
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := service.NewStagingService(db, a.logger).SetPriority(cmd.Context(), args[0], score); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s priority %g\n", okMark(), args[0], score)
			return nil
		},
	}
}

func analysesCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "analyses",
		Short: "List star analyses, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := service.NewAnalysisService(db, a.cfg.EmbeddingDimensions, a.logger).
				ListByPriority(cmd.Context(), repository.ListOptions{Limit: limit})
			if err != nil {
				return err
			}
			return printAnalyses(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum analyses to show")
	return cmd
}
