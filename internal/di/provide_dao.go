package di

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/grader-deployer/internal/config"
	"github.com/savaki/grader-deployer/internal/constants"
	"github.com/savaki/grader-deployer/internal/dao/releasedao"
	"github.com/savaki/grader-deployer/internal/services"
)

// ProvideReleaseDAO returns the release history DAO. History must be enabled
// with history_table.
func ProvideReleaseDAO(cfg config.Config, client *dynamodb.Client) (*releasedao.DAO, error) {
	if cfg.HistoryTable == "" {
		return nil, fmt.Errorf("release history is disabled; set history_table in %s", constants.ConfigFile)
	}
	return releasedao.New(client, cfg.HistoryTable), nil
}

func ProvideReleaseService(dao *releasedao.DAO) *services.ReleaseService {
	return services.NewReleaseService(dao)
}
