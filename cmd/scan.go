package cmd

import (
	"playshelf/config"
	"playshelf/core/meta"
	"playshelf/core/scanner"
	"playshelf/db"
	"playshelf/logger"
	"playshelf/model"
	"playshelf/repository"

	"github.com/spf13/cobra"
)

var scanForce bool

var scanCmd = &cobra.Command{
	Use:   "scan [type]",
	Short: "Scan the media library into the database",
	Long: `Walk the media directories and refresh the track index. Without an
argument every media type is checked; pass audiobooks, podcasts or music to
scan a single library.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.Init(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		if err := db.ConnectDB(cfg); err != nil {
			logger.Fatal("failed to connect to database", logger.ErrorField(err))
		}
		defer db.DB.Close()
		if err := db.InitDB(); err != nil {
			logger.Fatal("failed to initialize database schema", logger.ErrorField(err))
		}

		libScanner := scanner.NewScanner(cfg, meta.NewTagExtractor(),
			repository.NewSQLTrackRepository(db.DB),
			repository.NewSQLFileCountRepository(db.DB))

		types := model.AllMediaTypes
		if len(args) == 1 {
			mt, err := model.ParseMediaType(args[0])
			if err != nil {
				logger.Fatal("unknown media type", logger.String("type", args[0]))
			}
			types = []model.MediaType{mt}
		}

		for _, mt := range types {
			if scanForce {
				if err := libScanner.ForceRescan(mt); err != nil {
					logger.Error("rescan failed",
						logger.String("mediaType", string(mt)), logger.ErrorField(err))
				}
				continue
			}
			rescanned, err := libScanner.CheckAndRescanIfChanged(mt)
			if err != nil {
				logger.Error("rescan failed",
					logger.String("mediaType", string(mt)), logger.ErrorField(err))
				continue
			}
			logger.Info("library checked",
				logger.String("mediaType", string(mt)), logger.Bool("rescanned", rescanned))
		}
	},
}

func init() {
	scanCmd.Flags().BoolVarP(&scanForce, "force", "f", false, "rescan even when file counts are unchanged")
	rootCmd.AddCommand(scanCmd)
}
