package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/abhisek/vlab/internal/archive"
	"github.com/abhisek/vlab/internal/store"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy run records to a directory or an S3 bucket",
	Long: "export writes every stored experiment and challenge record as JSON to the\n" +
		"archive configured under archive: in the config file. --to picks the driver.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		acfg := cfg.Archive
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			acfg.Driver = archive.Driver(to)
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			acfg.Dir = dir
		}
		if bucket, _ := cmd.Flags().GetString("bucket"); bucket != "" {
			acfg.S3.Bucket = bucket
		}
		switch acfg.Driver {
		case archive.DriverFS, "":
			if acfg.Dir == "" {
				dir, err := store.DataDir()
				if err != nil {
					return err
				}
				acfg.Dir = filepath.Join(dir, "archive")
			}
		case archive.DriverS3:
			if acfg.S3.Bucket == "" {
				return fmt.Errorf("no bucket: set archive.s3.bucket or pass --bucket")
			}
		default:
			return fmt.Errorf("unknown archive driver %q (valid: fs, s3)", acfg.Driver)
		}

		var opts archive.ExportOptions
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			opts.Since = time.Now().Add(-since)
		}

		logger, logCloser, err := newLogger(cfg, false)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer logCloser.Close()

		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		dst, err := archive.Open(ctx, acfg)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}

		res, err := archive.Export(ctx, s.RunRepo(), dst, opts, logger)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d experiments and %d challenges to %s (%d skipped).\n",
			res.Experiments, res.Challenges, dst.Driver(), res.Skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("to", "", "Archive driver: fs or s3 (default from config)")
	exportCmd.Flags().String("dir", "", "Target directory for the fs driver (default <data dir>/archive)")
	exportCmd.Flags().String("bucket", "", "Target bucket for the s3 driver")
	exportCmd.Flags().Duration("since", 0, "Only export runs newer than this (e.g. 168h)")
	exportCmd.Flags().IntP("limit", "n", 0, "Maximum runs of each kind to export (0 = all)")
	exportCmd.Flags().Bool("overwrite", false, "Replace records that were already exported")
}
