package kero

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kareemzeiad-ops/kero-feeder/internal/app"
	"github.com/kareemzeiad-ops/kero-feeder/internal/service"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up and restore the reference database",
}

var (
	backupOut    string
	backupDir    string
	restoreFile  string
	restoreForce bool
)

func backupDirFor(db string) string {
	if backupDir != "" {
		return backupDir
	}
	return app.DefaultBackupDir(db)
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Copy the database into a checksummed backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := resolveDBPath()
		if err != nil {
			return err
		}
		out := backupOut
		if out == "" {
			out = filepath.Join(backupDirFor(db), fmt.Sprintf("kero-%s.db", time.Now().Format("20060102-150405")))
		}
		info, err := service.CreateBackup(db, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created backup: %s\n", info.Path)
		fmt.Fprintf(cmd.OutOrStdout(), "Checksum: %s\n", info.Checksum)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := resolveDBPath()
		if err != nil {
			return err
		}
		items, err := service.ListBackups(backupDirFor(db))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "FILE\tSIZE\tCREATED\tCHECKSUM")
		for _, it := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%s\n", it.Path, it.SizeBytes, it.CreatedAt.Format(time.RFC3339), it.Checksum)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the database from a backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreFile == "" {
			return fmt.Errorf("--file is required")
		}
		db, err := resolveDBPath()
		if err != nil {
			return err
		}
		if err := service.RestoreBackup(restoreFile, db, restoreForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", db, restoreFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)

	backupCreateCmd.Flags().StringVar(&backupOut, "out", "", "Backup file path")
	backupCreateCmd.Flags().StringVar(&backupDir, "dir", "", "Backup directory when --out is empty")
	backupListCmd.Flags().StringVar(&backupDir, "dir", "", "Backup directory (default: backups/ next to the database)")
	backupRestoreCmd.Flags().StringVar(&restoreFile, "file", "", "Backup .db file")
	backupRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite an existing database")
}
