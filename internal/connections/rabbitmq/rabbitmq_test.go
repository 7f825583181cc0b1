package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kanban-tracker/internal/config"
)

func TestURL(t *testing.T) {
	cfg := config.RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "p@ss", VHost: "/"}
	assert.Equal(t, "amqp://guest:p%40ss@mq:5672/%2F", URL(cfg))

	cfg.UseTLS = true
	cfg.VHost = "cell"
	assert.Equal(t, "amqps://guest:p%40ss@mq:5672/cell", URL(cfg))
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(config.RabbitMQConfig{Host: "127.0.0.1", Port: 1, User: "guest", Password: "guest"})
	assert.ErrorContains(t, err, "amqp dial 127.0.0.1:1")
}
