package main

import (
	"log"

	_ "github.com/anoixa/image-tiers/docs"

	"github.com/anoixa/image-tiers/config"

	"github.com/anoixa/image-tiers/cmd"
	"github.com/anoixa/image-tiers/utils/logger"
)

// @title                       Image Tiers API
// @version                     1.0
// @description                 Tiered image upload, thumbnail and temporary link service.
// @BasePath                    /api/v1
// @securityDefinitions.basic   BasicAuth
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	log.Printf("image tiers %s (%s)", config.Version, config.CommitHash)
	defer logger.Sync()
	cmd.Execute()
}
