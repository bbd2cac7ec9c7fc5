package seed

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users map[string]*domain.User
}

func (s *fakeUserStore) GetUserByUsername(username string) (*domain.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *fakeUserStore) CheckEmailIfExists(email string) (bool, error) {
	for _, user := range s.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) CreateUser(user *domain.User) error {
	user.ID = int64(len(s.users) + 1)
	s.users[user.Username] = user
	return nil
}

const usersCSV = `NetID,姓名,邮箱,角色
wangw,王伟,wangw@example.com,排课员
lina,李娜,lina@example.com,查看者
,无名,noname@example.com,查看者
zhaol,赵磊,zhaol@example.com,黑心
`

func TestReadUserRecords(t *testing.T) {
	records, err := ReadUserRecords(strings.NewReader(usersCSV))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, UserRecord{NetID: "wangw", FullName: "王伟", Email: "wangw@example.com", Role: "排课员"}, *records[0])
}

func TestSeedUsers(t *testing.T) {
	records, err := ReadUserRecords(strings.NewReader(usersCSV))
	require.NoError(t, err)

	store := &fakeUserStore{users: map[string]*domain.User{
		"lina": {ID: 100, Username: "lina"},
	}}

	cnt, err := SeedUsers(store, records, "initial-password")
	require.NoError(t, err)

	// lina 已存在，空 NetID 与无效角色被跳过
	assert.Equal(t, 1, cnt)

	user := store.users["wangw"]
	require.NotNil(t, user)
	assert.Equal(t, domain.RoleOperator, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("initial-password")))
	assert.Equal(t, int64(100), store.users["lina"].ID)
	assert.NotContains(t, store.users, "zhaol")
}

func TestSeedUsersSkipsTakenEmail(t *testing.T) {
	records, err := ReadUserRecords(strings.NewReader(usersCSV))
	require.NoError(t, err)

	store := &fakeUserStore{users: map[string]*domain.User{
		"wangwei": {ID: 7, Username: "wangwei", Email: "wangw@example.com"},
	}}

	cnt, err := SeedUsers(store, records, "initial-password")
	require.NoError(t, err)

	assert.Equal(t, 1, cnt)
	assert.NotContains(t, store.users, "wangw")
	assert.Contains(t, store.users, "lina")
}
