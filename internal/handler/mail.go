package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishMail 把邮件消息投递到 email_queue，由 mail worker 异步发送
func (h *Handler) publishMail(msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.amqpChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func resetPasswordOTPKey(username string) string {
	return fmt.Sprintf("otp_reset_password_%s", username)
}

func changeEmailOTPKey(username, newEmail string) string {
	return fmt.Sprintf("otp_change_email_%s_%s", username, newEmail)
}

// storeOTP 把验证码写入 redis，过期时间取配置
func (h *Handler) storeOTP(ctx context.Context, key, otp string) error {
	return h.redisClient.Set(ctx, key, otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err()
}

// checkOTP 校验验证码，不存在或不匹配都判为错误
func (h *Handler) checkOTP(ctx context.Context, key, otp string) bool {
	stored, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return stored == otp
}
