package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Migrate data from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run database migration",
	Long: `Run database migration from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  image-tiers migrate run --from-sqlite ./data.db --to-postgres "host=localhost user=postgres password=secret dbname=imagetiers port=5432"

  # Migrate with overwrite strategy (replace existing data)
  image-tiers migrate run --from-sqlite ./data.db --to-postgres "..." --on-conflict=overwrite

  # Stop on conflict
  image-tiers migrate run --from-sqlite ./data.db --to-postgres "..." --on-conflict=error`,
	Run: func(cmd *cobra.Command, args []string) {
		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		opts := migrateOptions{
			fromType: fromType, toType: toType,
			fromDSN: fromDSN, toDSN: toDSN,
			batchSize: batchSize, onConflict: onConflict,
		}
		if fromSQLite != "" {
			opts.fromType, opts.fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			opts.toType, opts.toDSN = "postgres", toPostgres
		}

		if err := runMigration(opts, skipConfirm); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateRunCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 100, "Batch size for data migration")
	migrateRunCmd.Flags().String("on-conflict", "skip", "Conflict resolution strategy: skip (default), overwrite, error")
}

type migrateOptions struct {
	fromType, toType string
	fromDSN, toDSN   string
	batchSize        int
	onConflict       string
}

func (o migrateOptions) validate() error {
	if o.onConflict != "skip" && o.onConflict != "overwrite" && o.onConflict != "error" {
		return fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", o.onConflict)
	}
	if o.fromType == "" || o.toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if o.fromDSN == "" || o.toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if o.fromType == o.toType && o.fromDSN == o.toDSN {
		return fmt.Errorf("source and target databases are the same")
	}
	if o.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}

// migrateStats 迁移统计
type migrateStats struct {
	rows        map[string]int
	skipped     int // 跳过的记录数
	overwritten int // 覆盖的记录数
	errors      []string
}

// runMigration 执行数据库迁移
func runMigration(opts migrateOptions, skipConfirm bool) error {
	if err := opts.validate(); err != nil {
		return err
	}

	log.Printf("Migrating from %s to %s", opts.fromType, opts.toType)
	log.Printf("Source: %s", maskDSN(opts.fromDSN))
	log.Printf("Target: %s", maskDSN(opts.toDSN))
	log.Printf("Conflict strategy: %s", opts.onConflict)

	// 连接源数据库
	sourceDB, err := openDatabase(opts.fromType, opts.fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	sqlDB, _ := sourceDB.DB()
	defer sqlDB.Close()

	// 连接目标数据库
	targetDB, err := openDatabase(opts.toType, opts.toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	sqlDB2, _ := targetDB.DB()
	defer sqlDB2.Close()

	// 确认迁移
	if !skipConfirm {
		fmt.Println("\nWarning: This will migrate all data from source to target database.")
		fmt.Printf("Conflict resolution strategy: %s\n", opts.onConflict)
		fmt.Println("Existing data in target database may be affected.")
		fmt.Print("Do you want to continue? [y/N]: ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Migration cancelled.")
			return nil
		}
	}

	stats, err := migrateData(context.Background(), sourceDB, targetDB, opts)
	printMigrateStats(stats)
	if err != nil {
		return err
	}
	if len(stats.errors) > 0 {
		return fmt.Errorf("migration completed with %d errors", len(stats.errors))
	}

	log.Println("Migration completed successfully!")
	return nil
}

// migrateData 按外键依赖顺序迁移所有表
func migrateData(ctx context.Context, sourceDB, targetDB *gorm.DB, opts migrateOptions) (*migrateStats, error) {
	stats := &migrateStats{rows: make(map[string]int)}

	log.Println("Migrating database schema...")
	if err := targetDB.AutoMigrate(models.All()...); err != nil {
		return stats, fmt.Errorf("failed to migrate schema: %w", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"resolutions", func() error {
			return migrateTable(ctx, sourceDB, targetDB, "resolutions", func(r *models.Resolution) uint { return r.ID }, opts, stats)
		}},
		{"tier_policies", func() error {
			return migrateTable(ctx, sourceDB, targetDB, "tier_policies", func(r *models.TierPolicy) uint { return r.ID }, opts, stats)
		}},
		{"tier_resolutions", func() error {
			return migrateTierResolutions(ctx, sourceDB, targetDB, opts, stats)
		}},
		{"users", func() error {
			return migrateTable(ctx, sourceDB, targetDB, "users", func(r *models.User) uint { return r.ID }, opts, stats)
		}},
		{"images", func() error {
			return migrateTable(ctx, sourceDB, targetDB, "images", func(r *models.Image) uint { return r.ID }, opts, stats)
		}},
		{"thumbnails", func() error {
			return migrateTable(ctx, sourceDB, targetDB, "thumbnails", func(r *models.Thumbnail) uint { return r.ID }, opts, stats)
		}},
	}

	for _, step := range steps {
		log.Printf("Migrating %s...", step.name)
		if err := step.run(); err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf("%s migration failed: %v", step.name, err))
			if opts.onConflict == "error" {
				return stats, err
			}
		}
	}
	return stats, nil
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		sqliteDSN := dsn
		if sqliteDSN == "" {
			sqliteDSN = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(sqliteDSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// handleConflict 处理冲突
// 返回值: shouldCreate (是否创建), shouldOverwrite (是否覆盖), error
func handleConflict[T any](ctx context.Context, targetDB *gorm.DB, id uint, onConflict string) (bool, bool, error) {
	var count int64
	if err := targetDB.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, false, err
	}
	if count == 0 {
		return true, false, nil
	}

	switch onConflict {
	case "overwrite":
		return false, true, nil
	case "error":
		return false, false, fmt.Errorf("record already exists: id=%d", id)
	default:
		return false, false, nil
	}
}

// migrateTable 分批迁移一张表，关联数据单独迁移
func migrateTable[T any](ctx context.Context, sourceDB, targetDB *gorm.DB, name string, idOf func(*T) uint, opts migrateOptions, stats *migrateStats) error {
	var total int64
	if err := sourceDB.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return err
	}

	for offset := 0; ; offset += opts.batchSize {
		var rows []T
		if err := sourceDB.WithContext(ctx).Order("id").Limit(opts.batchSize).Offset(offset).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		for i := range rows {
			row := &rows[i]
			id := idOf(row)

			shouldCreate, shouldOverwrite, err := handleConflict[T](ctx, targetDB, id, opts.onConflict)
			if err != nil {
				stats.errors = append(stats.errors, fmt.Sprintf("conflict check failed for %s %d: %v", name, id, err))
				if opts.onConflict == "error" {
					return err
				}
				continue
			}

			switch {
			case shouldCreate:
				if err := targetDB.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
					stats.errors = append(stats.errors, fmt.Sprintf("failed to migrate %s %d: %v", name, id, err))
					continue
				}
				stats.rows[name]++
			case shouldOverwrite:
				if err := targetDB.WithContext(ctx).Omit(clause.Associations).Save(row).Error; err != nil {
					stats.errors = append(stats.errors, fmt.Sprintf("failed to overwrite %s %d: %v", name, id, err))
					continue
				}
				stats.overwritten++
				stats.rows[name]++
			default:
				stats.skipped++
			}
		}

		if (offset/opts.batchSize)%10 == 9 {
			log.Printf("Migrated %d/%d %s...", stats.rows[name], total, name)
		}
	}

	log.Printf("Migrated %d %s", stats.rows[name], name)
	return nil
}

// migrateTierResolutions 迁移等级-分辨率关联关系
func migrateTierResolutions(ctx context.Context, sourceDB, targetDB *gorm.DB, opts migrateOptions, stats *migrateStats) error {
	type tierResolution struct {
		TierPolicyID uint
		ResolutionID uint
	}

	var relations []tierResolution
	if err := sourceDB.WithContext(ctx).Raw("SELECT tier_policy_id, resolution_id FROM tier_resolutions").Scan(&relations).Error; err != nil {
		return err
	}

	for _, rel := range relations {
		var count int64
		targetDB.WithContext(ctx).Raw(
			"SELECT COUNT(*) FROM tier_resolutions WHERE tier_policy_id = ? AND resolution_id = ?",
			rel.TierPolicyID, rel.ResolutionID,
		).Scan(&count)

		if count > 0 {
			if opts.onConflict == "error" {
				return fmt.Errorf("tier_resolution relation already exists: tier=%d, resolution=%d", rel.TierPolicyID, rel.ResolutionID)
			}
			// skip 和 overwrite 都跳过已存在的关联
			continue
		}

		if err := targetDB.WithContext(ctx).Exec(
			"INSERT INTO tier_resolutions (tier_policy_id, resolution_id) VALUES (?, ?)",
			rel.TierPolicyID, rel.ResolutionID,
		).Error; err != nil {
			stats.errors = append(stats.errors, fmt.Sprintf(
				"failed to migrate tier_resolution relation (tier=%d, resolution=%d): %v",
				rel.TierPolicyID, rel.ResolutionID, err))
			continue
		}
		stats.rows["tier_resolutions"]++
	}

	log.Printf("Migrated %d tier_resolution relations", stats.rows["tier_resolutions"])
	return nil
}

// maskDSN 隐藏敏感信息
func maskDSN(dsn string) string {
	if len(dsn) > 50 {
		return dsn[:50] + "..."
	}
	return dsn
}

// printMigrateStats 打印迁移统计
func printMigrateStats(stats *migrateStats) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	for _, name := range []string{"resolutions", "tier_policies", "tier_resolutions", "users", "images", "thumbnails"} {
		fmt.Printf("%-18s %d\n", name+":", stats.rows[name])
	}
	fmt.Printf("%-18s %d\n", "skipped:", stats.skipped)
	fmt.Printf("%-18s %d\n", "overwritten:", stats.overwritten)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
