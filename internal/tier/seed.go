package tier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Definition 种子文件中的等级定义
type Definition struct {
	Name            string   `mapstructure:"name"`
	KeepOriginal    bool     `mapstructure:"keep_original"`
	CanGenerateLink bool     `mapstructure:"can_generate_link"`
	Resolutions     []string `mapstructure:"resolutions"`
}

// Enterprise 默认管理员使用的等级
const Enterprise = "Enterprise"

// DefaultDefinitions 内置的三档等级
var DefaultDefinitions = []Definition{
	{Name: "Basic", Resolutions: []string{"200x200"}},
	{Name: "Premium", KeepOriginal: true, Resolutions: []string{"200x200", "400x400"}},
	{Name: Enterprise, KeepOriginal: true, CanGenerateLink: true, Resolutions: []string{"200x200", "400x400"}},
}

// ParseSize 解析 "WxH"
func ParseSize(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q, expected WxH", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q: %w", s, err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q: %w", s, err)
	}
	return w, h, nil
}

// LoadDefinitions 从 yaml/json/toml 文件读取 tiers 列表
func LoadDefinitions(path string) ([]Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read tier file %s: %w", path, err)
	}

	var defs []Definition
	if err := v.UnmarshalKey("tiers", &defs); err != nil {
		return nil, fmt.Errorf("failed to parse tier file %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("tier file %s defines no tiers", path)
	}
	return defs, nil
}

// Seed 按定义逐个写入等级，所需分辨率不存在时自动创建
func (s *Service) Seed(ctx context.Context, defs []Definition) error {
	for _, d := range defs {
		ids := make([]uint, 0, len(d.Resolutions))
		for _, size := range d.Resolutions {
			w, h, err := ParseSize(size)
			if err != nil {
				return err
			}
			res, err := s.EnsureResolution(ctx, w, h)
			if err != nil {
				return err
			}
			ids = append(ids, res.ID)
		}

		if _, err := s.CreateOrUpdate(ctx, Input{
			Name:            d.Name,
			KeepOriginal:    d.KeepOriginal,
			CanGenerateLink: d.CanGenerateLink,
			ResolutionIDs:   ids,
		}); err != nil {
			return fmt.Errorf("failed to seed tier %q: %w", d.Name, err)
		}
	}
	return nil
}

// EnsureDefaults 等级表为空时写入内置等级
func (s *Service) EnsureDefaults(ctx context.Context) error {
	n, err := s.tiers.Count(ctx, nil)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	logger.L.Info("seeding default tiers", zap.Int("count", len(DefaultDefinitions)))
	return s.Seed(ctx, DefaultDefinitions)
}
