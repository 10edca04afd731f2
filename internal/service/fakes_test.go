package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/storage"
)

// memoryStore backs every fake repository so services see one consistent world.
type memoryStore struct {
	mu       sync.Mutex
	students map[string]*models.Student
	teachers map[string]*models.Teacher
	admins   map[string]*models.Admin
	records  []models.AttendanceRecord
	history  map[string][]models.StudentAttendance

	createErr       error
	batchErr        error
	passwordUpdates int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		students: map[string]*models.Student{},
		teachers: map[string]*models.Teacher{},
		admins:   map[string]*models.Admin{},
		history:  map[string][]models.StudentAttendance{},
	}
}

func (m *memoryStore) allUsers() []*models.User {
	users := make([]*models.User, 0, len(m.students)+len(m.teachers)+len(m.admins))
	for _, s := range m.students {
		users = append(users, &s.User)
	}
	for _, t := range m.teachers {
		users = append(users, &t.User)
	}
	for _, a := range m.admins {
		users = append(users, &a.User)
	}
	return users
}

func (m *memoryStore) userBy(match func(*models.User) bool) *models.User {
	for _, u := range m.allUsers() {
		if match(u) {
			return u
		}
	}
	return nil
}

func (m *memoryStore) prepare(user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.userBy(func(u *models.User) bool { return u.Role == user.Role && u.LoginID == user.LoginID }) != nil {
		return fmt.Errorf("create: %w", repository.ErrDuplicateKey)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	return nil
}

type fakeUserRepo struct{ *memoryStore }

func (r fakeUserRepo) FindByLoginID(ctx context.Context, role models.Role, loginID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.userBy(func(u *models.User) bool { return u.Role == role && u.LoginID == loginID }); u != nil {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r fakeUserRepo) FindByID(ctx context.Context, role models.Role, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.userBy(func(u *models.User) bool { return u.Role == role && u.ID == id }); u != nil {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r fakeUserRepo) LoginIDExists(ctx context.Context, role models.Role, loginID string) (bool, error) {
	_, err := r.FindByLoginID(ctx, role, loginID)
	return err == nil, nil
}

func (r fakeUserRepo) AdminEmailExists(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUserRepo) CreateStudent(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student.Role = models.RoleStudent
	for _, s := range r.students {
		if s.Roll == student.Roll {
			return fmt.Errorf("create student: %w", repository.ErrDuplicateKey)
		}
	}
	if err := r.prepare(&student.User); err != nil {
		return err
	}
	copied := *student
	r.students[student.ID] = &copied
	return nil
}

func (r fakeUserRepo) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	teacher.Role = models.RoleTeacher
	if err := r.prepare(&teacher.User); err != nil {
		return err
	}
	copied := *teacher
	r.teachers[teacher.ID] = &copied
	return nil
}

func (r fakeUserRepo) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admin.Role = models.RoleAdmin
	if err := r.prepare(&admin.User); err != nil {
		return err
	}
	copied := *admin
	r.admins[admin.ID] = &copied
	return nil
}

func (r fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.userBy(func(u *models.User) bool { return u.ID == id })
	if u == nil {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	r.passwordUpdates++
	return nil
}

func (r fakeUserRepo) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.teachers[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r fakeUserRepo) FindAdmin(ctx context.Context, id string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.admins[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r fakeUserRepo) DeleteByLoginID(ctx context.Context, role models.Role, loginID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role != models.RoleTeacher {
		return fmt.Errorf("unsupported role %s", role)
	}
	for id, t := range r.teachers {
		if t.LoginID != loginID {
			continue
		}
		delete(r.teachers, id)
		for i := range r.records {
			if r.records[i].MarkedBy != nil && *r.records[i].MarkedBy == id {
				r.records[i].MarkedBy = nil
			}
		}
		for sid, entries := range r.history {
			for i := range entries {
				if entries[i].MarkedBy != nil && *entries[i].MarkedBy == id {
					r.history[sid][i].MarkedBy = nil
				}
			}
		}
		return nil
	}
	return sql.ErrNoRows
}

type fakeStudentRepo struct{ *memoryStore }

func (r fakeStudentRepo) FindByLoginID(ctx context.Context, loginID string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.LoginID == loginID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.students[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r fakeStudentRepo) ExistsByLoginOrRoll(ctx context.Context, loginID, roll string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.LoginID == loginID || s.Roll == roll {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeStudentRepo) Approve(ctx context.Context, loginID, approverID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.LoginID == loginID {
			s.Approved = true
			if s.ApprovedAt == nil {
				s.ApprovedAt = &at
				s.ApprovedBy = &approverID
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r fakeStudentRepo) ListByApproval(ctx context.Context, approved bool) ([]models.StudentSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.StudentSummary, 0)
	for _, s := range r.students {
		if s.Approved == approved {
			out = append(out, models.StudentSummary{ID: s.ID, LoginID: s.LoginID, Name: s.Name, Roll: s.Roll, Course: s.Course, Year: s.Year, Semester: s.Semester})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoginID < out[j].LoginID })
	return out, nil
}

func (r fakeStudentRepo) History(ctx context.Context, studentID string) ([]models.StudentAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(make([]models.StudentAttendance, 0), r.history[studentID]...), nil
}

type fakeTeacherRepo struct{ *memoryStore }

func (r fakeTeacherRepo) List(ctx context.Context) ([]models.TeacherSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TeacherSummary, 0, len(r.teachers))
	for _, t := range r.teachers {
		out = append(out, models.TeacherSummary{ID: t.ID, LoginID: t.LoginID, Name: t.Name, Department: t.Department})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeAttendanceRepo struct {
	*memoryStore
	listCalls int
}

func (r *fakeAttendanceRepo) CreateBatch(ctx context.Context, record *models.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchErr != nil {
		return r.batchErr
	}
	var missing []string
	for _, e := range record.Students {
		if _, ok := r.students[e.StudentID]; !ok {
			missing = append(missing, e.StudentID)
		}
	}
	if len(missing) > 0 {
		return &repository.UnknownStudentsError{IDs: missing}
	}
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()
	for i := range record.Students {
		record.Students[i].RecordID = record.ID
		record.Students[i].Position = i
		e := record.Students[i]
		r.history[e.StudentID] = append(r.history[e.StudentID], models.StudentAttendance{
			ID: uuid.NewString(), StudentID: e.StudentID, RecordID: record.ID, Date: record.Date,
			Status: e.Status, MarkedBy: record.MarkedBy, CreatedAt: record.CreatedAt,
		})
	}
	copied := *record
	copied.Students = append([]models.AttendanceEntry(nil), record.Students...)
	r.records = append(r.records, copied)
	return nil
}

func (r *fakeAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]models.AttendanceRecord, 0)
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if filter.Course != "" && rec.Course != filter.Course {
			continue
		}
		if filter.Semester > 0 && rec.Semester != filter.Semester {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *fakeAttendanceRepo) ExportRows(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceExportRow, error) {
	records, _ := r.List(ctx, filter)
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]models.AttendanceExportRow, 0)
	for _, rec := range records {
		for _, e := range rec.Students {
			s := r.students[e.StudentID]
			rows = append(rows, models.AttendanceExportRow{
				RecordID: rec.ID, Date: rec.Date, Course: rec.Course, Semester: rec.Semester,
				StudentID: e.StudentID, StudentName: s.Name, LoginID: s.LoginID, Roll: s.Roll,
				Status: e.Status, Remarks: e.Remarks,
			})
		}
	}
	return rows, nil
}

// memoryCache mimics the Redis cache including the JSON round trip.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if ok, _ := filepath.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return nil
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}

func pngUpload() *PhotoUpload {
	return &PhotoUpload{Filename: "me.png", Content: bytes.NewReader(pngBytes)}
}

// harness wires every service against one memory store.
type harness struct {
	store      *memoryStore
	cache      *memoryCache
	attendance *fakeAttendanceRepo
	photos     *storage.PhotoStore
	metrics    *MetricsService
	creds      *CredentialService
	auth       *AuthService
	students   *StudentService
	teachers   *TeacherService
	records    *AttendanceService
	admins     *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemoryStore()
	photos, err := storage.NewPhotoStore(filepath.Join(t.TempDir(), "uploads"), "/uploads", 1024)
	require.NoError(t, err)

	h := &harness{store: store, cache: newMemoryCache(), attendance: &fakeAttendanceRepo{memoryStore: store}, photos: photos, metrics: NewMetricsService()}
	cache := NewCacheService(h.cache, h.metrics, time.Minute, nil, true)
	users := fakeUserRepo{store}
	students := fakeStudentRepo{store}

	h.creds = NewCredentialService(users, nil)
	h.auth = NewAuthService(h.creds, users, students, repository.NewTokenRepository(nil, ""), h.metrics, nil, nil, AuthConfig{
		Secret:   "test-secret",
		Issuer:   "campus-attendance-api",
		TokenTTL: time.Hour,
	})
	h.students = NewStudentService(students, h.creds, photos, cache, h.metrics, nil, nil)
	h.teachers = NewTeacherService(fakeTeacherRepo{store}, users, h.creds, cache, nil, nil)
	h.records = NewAttendanceService(h.attendance, cache, h.metrics, nil, nil)
	h.admins = NewAdminService(users, h.creds, nil, nil)
	return h
}

func (h *harness) registerStudent(t *testing.T, loginID, roll, password string) {
	t.Helper()
	require.NoError(t, h.students.Register(context.Background(), models.RegisterStudentRequest{
		UserID: loginID, Name: strings.ToUpper(loginID), Roll: roll, Course: "BCA", Year: 2, Semester: 3, Password: password,
	}, pngUpload()))
}

func (h *harness) studentID(t *testing.T, loginID string) string {
	t.Helper()
	s, err := fakeStudentRepo{h.store}.FindByLoginID(context.Background(), loginID)
	require.NoError(t, err)
	return s.ID
}

func (h *harness) teacher(t *testing.T, loginID, name string) models.Identity {
	t.Helper()
	summary, err := h.teachers.Create(context.Background(), models.CreateTeacherRequest{UserID: loginID, Password: "teach-pass", Name: name, Department: "CS"})
	require.NoError(t, err)
	return models.Identity{ID: summary.ID, LoginID: summary.LoginID, Name: summary.Name, Role: models.RoleTeacher}
}

func assertCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, want.Code, appErr.Code, appErr.Error())
	require.Equal(t, want.Status, appErr.Status)
}
