package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	OTP struct {
		Expiration int `env:"EXPIRATION" envDefault:"900"` // 15 分钟
	} `envPrefix:"OTP_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	Prediction struct {
		BaseURL        string `env:"BASE_URL,required"`
		RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"`
		CacheTTL       int    `env:"CACHE_TTL" envDefault:"600"` // 秒
	} `envPrefix:"PREDICTION_"`
	Compliance struct {
		// DutyClassRules 的格式为 班别:窗口小时:上限小时，多条之间用逗号分隔
		DutyClassRules string  `env:"DUTY_CLASS_RULES" envDefault:"A:24:14,B:48:38"`
		MinRestHours   float64 `env:"MIN_REST_HOURS" envDefault:"10"`
		RestWarnMargin float64 `env:"REST_WARN_MARGIN" envDefault:"1"`
		DutyWarnRatio  float64 `env:"DUTY_WARN_RATIO" envDefault:"0.9"`
	} `envPrefix:"COMPLIANCE_"`
	Matching struct {
		// 滚动历史窗口内分配记录少于这个数量的司机不参与匹配
		MinHistoryAssignments int `env:"MIN_HISTORY_ASSIGNMENTS" envDefault:"8"`
		HistoryWindowWeeks    int `env:"HISTORY_WINDOW_WEEKS" envDefault:"8"`
		// 模式置信度低于这个值的司机直接排除
		MinPatternConfidence float64 `env:"MIN_PATTERN_CONFIDENCE" envDefault:"0.1"`
		// 置信度低于这个值时，各种加成减半
		LowConfidenceCutoff float64 `env:"LOW_CONFIDENCE_CUTOFF" envDefault:"0.5"`
		// 历史发车时间锁定的置信度阈值
		SlotLockConfidence float64 `env:"SLOT_LOCK_CONFIDENCE" envDefault:"0.7"`
		FairnessBonus      float64 `env:"FAIRNESS_BONUS" envDefault:"0.1"`
		BelowFloorBonus    float64 `env:"BELOW_FLOOR_BONUS" envDefault:"0.1"`
		PriorityBonus      float64 `env:"PRIORITY_BONUS" envDefault:"0.05"`
	} `envPrefix:"MATCHING_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}
