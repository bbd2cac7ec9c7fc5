package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// UserRecord 对应导入文件中的一行，表头为中文
type UserRecord struct {
	NetID    string `csv:"NetID"`
	FullName string `csv:"姓名"`
	Email    string `csv:"邮箱"`
	Role     string `csv:"角色"`
}

type UserStore interface {
	GetUserByUsername(username string) (*domain.User, error)
	CheckEmailIfExists(email string) (bool, error)
	CreateUser(user *domain.User) error
}

func ReadUserRecords(r io.Reader) ([]*UserRecord, error) {
	records := []*UserRecord{}
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (rec *UserRecord) validate() error {
	if rec.NetID == "" {
		return errors.New("没有找到NetID")
	}
	if rec.FullName == "" {
		return fmt.Errorf("%s 没有姓名", rec.NetID)
	}
	if rec.Email == "" {
		return fmt.Errorf("%s 没有邮箱", rec.NetID)
	}
	switch domain.Role(rec.Role) {
	case domain.RoleViewer, domain.RoleOperator, domain.RoleAdmin:
	default:
		return fmt.Errorf("%s 的角色 %q 无效", rec.NetID, rec.Role)
	}

	return nil
}

// SeedUsers 插入文件中尚不存在的用户，所有新用户使用同一个初始密码，返回实际插入的数量
func SeedUsers(store UserStore, records []*UserRecord, password string) (int, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	cnt := 0
	for _, record := range records {
		if err := record.validate(); err != nil {
			slog.Error("跳过无效的记录", "error", err)
			continue
		}

		_, err := store.GetUserByUsername(record.NetID)
		if err == nil {
			slog.Info("用户已存在", "username", record.NetID)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return cnt, err
		}

		emailTaken, err := store.CheckEmailIfExists(record.Email)
		if err != nil {
			return cnt, err
		}
		if emailTaken {
			slog.Info("邮箱已被其他用户使用", "username", record.NetID, "email", record.Email)
			continue
		}

		user := &domain.User{
			Username:     record.NetID,
			PasswordHash: string(passwordHash),
			FullName:     record.FullName,
			Email:        record.Email,
			Role:         domain.Role(record.Role),
		}
		if err := store.CreateUser(user); err != nil {
			slog.Error("插入用户失败", "username", record.NetID, "error", err)
			continue
		}

		cnt++
	}

	return cnt, nil
}

func SeedUsersFromFile(store UserStore, path string, password string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	records, err := ReadUserRecords(file)
	if err != nil {
		return 0, err
	}

	return SeedUsers(store, records, password)
}
