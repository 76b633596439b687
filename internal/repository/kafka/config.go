package kafka

import "time"

// Config is the shared kafka section of service configs.
type Config struct {
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	GroupID       string        `mapstructure:"group_id"`
	FromBeginning bool          `mapstructure:"from_beginning"`
	Partitions    int           `mapstructure:"partitions"`
	Replication   int           `mapstructure:"replication"`
	TopicWait     time.Duration `mapstructure:"topic_wait"`
}

func (c Config) Consumer() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:       c.Brokers,
		GroupID:       c.GroupID,
		Topic:         c.Topic,
		FromBeginning: c.FromBeginning,
	}
}
