package cmd

import (
	"context"
	"fmt"
	"time"

	"TuneLib/config"
	"TuneLib/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO封面存储管理",
	Long:  `查看和清理MinIO存储桶中的歌曲封面，支持列出文件、查看统计信息、按前缀删除。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		store, err := storage.NewCoverStore(cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		fmt.Println("MinIO连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定前缀，例如 --prefix %s42/", storage.CoverPrefix)
			}
			n, err := store.DeleteCovers(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return nil
		}

		objects, err := store.ListCovers(ctx, minioPrefix)
		if err != nil {
			return err
		}

		var total int64
		for _, object := range objects {
			total += object.Size
			if !minioStats {
				fmt.Printf("%-60s %10d  %s\n", object.Key, object.Size, object.LastModified.Format(time.RFC3339))
			}
		}
		fmt.Printf("\n共 %d 个对象，%.2f MB\n", len(objects), float64(total)/1024/1024)
		return nil
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "对象前缀，默认 covers/")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除前缀下的全部对象")
	rootCmd.AddCommand(minioCmd)
}
