package cmd

import (
	"fmt"

	"TuneLib/config"
	"TuneLib/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建或更新数据表",
	Long:  `使用 GORM AutoMigrate 创建 songs、liked_songs、playlist_songs 表及 (user_email, song_id) 唯一索引。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		fmt.Printf("数据库: %s@%s:%s/%s\n", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)

		gormDB, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB(gormDB)

		if err := db.AutoMigrateModels(gormDB); err != nil {
			return err
		}
		fmt.Println("数据表迁移完成！")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
