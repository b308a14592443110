package app

import (
	"context"

	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/database"
	"github.com/wyfcoding/flightroute/messagequeue/kafka"
	"github.com/wyfcoding/flightroute/pipeline"
	"github.com/wyfcoding/flightroute/storage"
)

// buildSinks 按配置创建已启用的下游，并把释放逻辑挂到生命周期上.
func (a *App) buildSinks(ctx context.Context, conf *config.Config) ([]pipeline.Sink, error) {
	var sinks []pipeline.Sink

	if dbConf := conf.Data.Database; dbConf.Enabled {
		db, err := database.NewDB(dbConf, a.Logger)
		if err != nil {
			return nil, err
		}
		a.lifecycle.Append(Hook{Name: "database", OnStop: func(context.Context) error { return db.Close() }})
		store := database.NewRunStore(db.DB)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}

	if conf.Minio.Enabled {
		client, err := storage.NewMinIOClient(ctx, conf.Minio)
		if err != nil {
			return nil, err
		}
		storage.RegisterReloadHook(client)
		sinks = append(sinks, storage.NewArchiver(client, ""))
	}

	if kafkaConf := conf.MessageQueue.Kafka; kafkaConf.Enabled {
		producer := kafka.NewProducer(kafkaConf, a.Logger)
		a.lifecycle.Append(Hook{Name: "kafka", OnStop: func(context.Context) error { return producer.Close() }})
		sinks = append(sinks, producer)
	}

	for _, s := range sinks {
		a.Logger.InfoContext(ctx, "sink enabled", "sink", s.Name())
	}
	return sinks, nil
}
