package main

import (
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"fleet_platform/config"
	"fleet_platform/internal/global"
)

func InitRegistry() {
	// Khởi tạo registry và đăng ký các collections
	err := InitCollections(global.MongoDB_Session, global.ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to initialize collections: %v", err)
	}
	logrus.Info("Initialized collection registry")
}

// InitCollections khởi tạo và đăng ký các collections MongoDB
func InitCollections(client *mongo.Client, cfg *config.Configuration) error {
	db := client.Database(cfg.MongoDB_DBName_Fleet)

	if _, err := global.RegistryDatabase.Register(cfg.MongoDB_DBName_Fleet, db); err != nil {
		logrus.Errorf("Failed to register database %s: %v", cfg.MongoDB_DBName_Fleet, err)
		return err
	}

	colNames := []string{
		global.MongoDB_ColNames.Nodes,
		global.MongoDB_ColNames.NodeSessions,
		global.MongoDB_ColNames.NodeStats,
		global.MongoDB_ColNames.NodeHistories,
		global.MongoDB_ColNames.Areas,
	}

	for _, name := range colNames {
		registered, err := global.RegistryCollections.Register(name, db.Collection(name))
		if err != nil {
			logrus.Errorf("Failed to register collection %s: %v", name, err)
			return err
		}

		if registered {
			logrus.Infof("Collection %s registered successfully", name)
		} else {
			logrus.Errorf("Collection %s already registered", name)
		}
	}

	return nil
}
