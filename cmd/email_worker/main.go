package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"accounthub/config"
	"accounthub/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if !cfg.MailSendEnabled {
		log.Println("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	log.Printf("email worker consuming from %q", cfg.RabbitMQEmailQueue)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for d := range msgs {
			var job mailer.EmailJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Printf("bad email job, dropping: %v", err)
				_ = d.Nack(false, false)
				continue
			}

			subject, text, err := mailer.Render(job.Template, job.Data)
			if err != nil {
				log.Printf("render %q for %s failed, dropping: %v", job.Template, job.To, err)
				_ = d.Nack(false, false)
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			err = mg.Send(ctx, job.To, subject, text, "")
			cancel()
			if err != nil {
				log.Printf("send to %s failed, requeueing: %v", job.To, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
			log.Printf("sent %q to %s", job.Template, job.To)
		}
	}()

	<-done
	log.Println("email worker shutting down")
}
