package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"innovate-ink/internal/article"
	"innovate-ink/internal/config"
	"innovate-ink/internal/query"
	"innovate-ink/internal/server"
	"innovate-ink/internal/store"
	"innovate-ink/internal/worker"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	cfg        *config.Config
	logger     *zap.Logger
	redisAddr  string
	badgerPath string
	httpAddr   string
	diagAddr   string

	listSearch string
	listTag    string
	listPage   string
	listLimit  string
)

var rootCmd = &cobra.Command{
	Use:   "ink",
	Short: "innovate-ink - articles API for a writing platform",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server and maintenance worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Setup Signal Handling (Ctrl+C)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		// Setup Manual 'q' input handling
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if scanner.Text() == "q" {
					fmt.Println(" 'q' pressed. Stopping...")
					cancel()
					return
				}
			}
		}()

		go func() {
			select {
			case <-sigChan:
				logger.Info("Shutting down...")
				cancel()
			case <-ctx.Done():
			}
		}()

		// FULL MODE - Redis + Badger
		st, err := store.NewHybridStore(redisAddr, badgerPath)
		if err != nil {
			logger.Fatal("Failed to init store", zap.Error(err))
		}
		defer st.Close()

		if err := st.Ping(ctx); err != nil {
			logger.Fatal("Redis unreachable", zap.String("addr", redisAddr), zap.Error(err))
		}

		svc := article.NewService(st, logger,
			article.WithAuthorDirectory(st, cfg.AuthorCacheSize, cfg.AuthorCacheTTL))
		srv := server.NewServer(svc, st, logger, server.Options{
			LikeRate:  rate.Limit(cfg.LikeRate),
			LikeBurst: cfg.LikeBurst,
		})

		diagMux := http.NewServeMux()
		diagMux.Handle("/metrics", promhttp.Handler())
		diag := &http.Server{
			Addr:         diagAddr,
			Handler:      diagMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}

		if badgerPath != "" {
			w := worker.NewWorker(st, logger, cfg.GCInterval, cfg.GCDiscardRatio)
			go w.Start(ctx)
		}

		go func() {
			if err := srv.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Web server failed", zap.Error(err))
				cancel()
			}
		}()
		go func() {
			logger.Info("Diagnostics listening", zap.String("addr", diagAddr))
			if err := diag.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Diagnostics server failed", zap.Error(err))
				cancel()
			}
		}()

		logger.Info("Server running.")
		fmt.Println("Press 'q' + Enter or Ctrl+C to stop.")

		// Block until shutdown
		<-ctx.Done()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Web server shutdown", zap.Error(err))
		}
		if err := diag.Shutdown(shutdownCtx); err != nil {
			logger.Error("Diagnostics shutdown", zap.Error(err))
		}
		logger.Info("Goodbye!")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles newest first",
	Run: func(cmd *cobra.Command, args []string) {
		// CLIENT MODE - Redis only, leaves the Badger lock to the server
		st, err := store.NewHybridStore(redisAddr, "")
		if err != nil {
			logger.Fatal("Failed to init store", zap.Error(err))
		}
		defer st.Close()

		svc := article.NewService(st, logger, article.WithAuthorDirectory(st, 0, 0))
		page, err := svc.List(context.Background(), nil, query.Params{
			Search: listSearch,
			Tag:    listTag,
			Page:   listPage,
			Limit:  listLimit,
		})
		if err != nil {
			logger.Fatal("Failed to list articles", zap.Error(err))
		}

		table := tablewriter.NewTable(cmd.OutOrStdout())
		table.Header([]string{"ID", "Title", "Author", "Tags", "Likes", "Views", "Created"})
		rows := make([][]string, 0, len(page.Articles))
		for _, a := range page.Articles {
			author := a.AuthorName
			if author == "" {
				author = a.AuthorID
			}
			rows = append(rows, []string{
				a.ID.String(),
				a.Title,
				author,
				strings.Join(a.Tags, ", "),
				fmt.Sprint(a.Likes),
				fmt.Sprint(a.Views),
				a.CreatedAt.Format("Jan 02, 2006"),
			})
		}
		table.Bulk(rows)
		table.Render()

		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d articles\n", page.CurrentPage, page.TotalPages, page.Total)
	},
}

var authorCmd = &cobra.Command{
	Use:   "author",
	Short: "Manage author display names",
}

var authorSetCmd = &cobra.Command{
	Use:   "set [id] [name]",
	Short: "Set the display name shown for an author id",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := store.NewHybridStore(redisAddr, "")
		if err != nil {
			logger.Fatal("Failed to init store", zap.Error(err))
		}
		defer st.Close()

		if err := st.SetAuthorName(context.Background(), args[0], args[1]); err != nil {
			logger.Fatal("Failed to save author", zap.Error(err))
		}

		logger.Info("Author saved",
			zap.String("id", args[0]),
			zap.String("name", args[1]))
	},
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err = cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", cfg.RedisAddr, "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerPath, "badger", cfg.BadgerPath, "Path to BadgerDB data directory (empty disables content storage)")

	serverCmd.Flags().StringVar(&httpAddr, "http", cfg.HTTPAddr, "API listen address")
	serverCmd.Flags().StringVar(&diagAddr, "diag", cfg.DiagAddr, "Metrics listen address")

	listCmd.Flags().StringVar(&listSearch, "search", "", "Keywords matched against title, content and tags")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Only articles with this tag")
	listCmd.Flags().StringVar(&listPage, "page", "1", "Page number")
	listCmd.Flags().StringVar(&listLimit, "limit", "10", "Articles per page")

	authorCmd.AddCommand(authorSetCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(authorCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
