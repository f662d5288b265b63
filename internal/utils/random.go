package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleDispatcher,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

var contractClasses = []domain.ContractClass{
	domain.ContractClassA,
	domain.ContractClassB,
	domain.ContractClassBoth,
}

func GenerateRandomDriver() *domain.Driver {
	driver := &domain.Driver{
		Name:          GenerateRandomChineseName(),
		ContractClass: contractClasses[rand.Intn(len(contractClasses))],
		DaysOff:       make([]time.Weekday, 0),
		IsActive:      true,
		LoadEligible:  true,
		WantsMoreWork: rand.Intn(5) == 0,
	}

	// 大约一半的司机有一个固定休息日
	if rand.Intn(2) == 0 {
		driver.DaysOff = append(driver.DaysOff, time.Weekday(rand.Intn(7)))
	}

	return driver
}

var patternGroups = []domain.PatternGroup{
	domain.PatternGroupSunWed,
	domain.PatternGroupWedSat,
	domain.PatternGroupMixed,
}

// GenerateRandomSubject 在指定日期生成一个随机任务。
// 发车时间取整点或半点，时长 4 到 9 小时，贴近真实排班的粒度
func GenerateRandomSubject(day time.Time) *domain.DutySubject {
	startHour := rand.Intn(18)
	startMinute := rand.Intn(2) * 30
	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, startMinute, 0, 0, day.Location())
	hours := float64(rand.Intn(6) + 4)

	class := domain.DutyClassA
	if rand.Intn(2) == 0 {
		class = domain.DutyClassB
	}

	subject := &domain.DutySubject{
		StartTime:     start,
		EndTime:       start.Add(time.Duration(hours * float64(time.Hour))),
		DurationHours: domain.NormalizeHours(hours),
		DutyClass:     class,
		PatternGroup:  patternGroups[rand.Intn(len(patternGroups))],
		CycleID:       fmt.Sprintf("cycle-%04d%02d", day.Year(), int(day.Month())),
	}
	subject.ID = fmt.Sprintf("occ:dev-%s:%d", start.Format("20060102-1504"), rand.Intn(10000))

	return subject
}
