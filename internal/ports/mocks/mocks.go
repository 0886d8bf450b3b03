package mocks

import (
	"context"
	"time"

	"github.com/bnema/operate-cli/internal/domain"
	"github.com/bnema/operate-cli/internal/ports"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

type MockPlanner struct{ mock.Mock }

var _ ports.Planner = (*MockPlanner)(nil)

func NewMockPlanner(t testingT) *MockPlanner {
	m := &MockPlanner{}
	register(&m.Mock, t)
	return m
}

func (m *MockPlanner) GetNextAction(ctx context.Context, req ports.PlanRequest) (ports.Plan, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.Plan), args.Error(1)
}

type MockDesktopInput struct{ mock.Mock }

var _ ports.DesktopInput = (*MockDesktopInput)(nil)

func NewMockDesktopInput(t testingT) *MockDesktopInput {
	m := &MockDesktopInput{}
	register(&m.Mock, t)
	return m
}

func (m *MockDesktopInput) Press(ctx context.Context, keys []string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockDesktopInput) Write(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockDesktopInput) Click(ctx context.Context, x, y float64) error {
	return m.Called(ctx, x, y).Error(0)
}

type MockScreenCapturer struct{ mock.Mock }

var _ ports.ScreenCapturer = (*MockScreenCapturer)(nil)

func NewMockScreenCapturer(t testingT) *MockScreenCapturer {
	m := &MockScreenCapturer{}
	register(&m.Mock, t)
	return m
}

func (m *MockScreenCapturer) Capture(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type MockBrowserAgent struct{ mock.Mock }

var _ ports.BrowserAgent = (*MockBrowserAgent)(nil)

func NewMockBrowserAgent(t testingT) *MockBrowserAgent {
	m := &MockBrowserAgent{}
	register(&m.Mock, t)
	return m
}

func (m *MockBrowserAgent) Run(ctx context.Context, run ports.BrowserRun) (domain.TaskResult, error) {
	args := m.Called(ctx, run)
	result, _ := args.Get(0).(domain.TaskResult)
	return result, args.Error(1)
}

func (m *MockBrowserAgent) Close() error {
	return m.Called().Error(0)
}

type MockBrowserAgentFactory struct{ mock.Mock }

var _ ports.BrowserAgentFactory = (*MockBrowserAgentFactory)(nil)

func NewMockBrowserAgentFactory(t testingT) *MockBrowserAgentFactory {
	m := &MockBrowserAgentFactory{}
	register(&m.Mock, t)
	return m
}

func (m *MockBrowserAgentFactory) NewAgent(ctx context.Context, model string) (ports.BrowserAgent, error) {
	args := m.Called(ctx, model)
	agent, _ := args.Get(0).(ports.BrowserAgent)
	return agent, args.Error(1)
}

type MockTaskClassifier struct{ mock.Mock }

var _ ports.TaskClassifier = (*MockTaskClassifier)(nil)

func NewMockTaskClassifier(t testingT) *MockTaskClassifier {
	m := &MockTaskClassifier{}
	register(&m.Mock, t)
	return m
}

func (m *MockTaskClassifier) ClassifyTask(ctx context.Context, objective string) (domain.ClassificationResult, error) {
	args := m.Called(ctx, objective)
	return args.Get(0).(domain.ClassificationResult), args.Error(1)
}

type MockRunRepository struct{ mock.Mock }

var _ ports.RunRepository = (*MockRunRepository)(nil)

func NewMockRunRepository(t testingT) *MockRunRepository {
	m := &MockRunRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockRunRepository) GetByID(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.RunRecord), args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	args := m.Called(ctx, limit)
	records, _ := args.Get(0).([]domain.RunRecord)
	return records, args.Error(1)
}

func (m *MockRunRepository) Save(ctx context.Context, record domain.RunRecord) error {
	return m.Called(ctx, record).Error(0)
}

type MockOCRReader struct{ mock.Mock }

var _ ports.OCRReader = (*MockOCRReader)(nil)

func NewMockOCRReader(t testingT) *MockOCRReader {
	m := &MockOCRReader{}
	register(&m.Mock, t)
	return m
}

func (m *MockOCRReader) ReadText(ctx context.Context, image []byte) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

func (m *MockOCRReader) Languages() []string {
	args := m.Called()
	langs, _ := args.Get(0).([]string)
	return langs
}

type MockOCRReaderProvider struct{ mock.Mock }

var _ ports.OCRReaderProvider = (*MockOCRReaderProvider)(nil)

func NewMockOCRReaderProvider(t testingT) *MockOCRReaderProvider {
	m := &MockOCRReaderProvider{}
	register(&m.Mock, t)
	return m
}

func (m *MockOCRReaderProvider) Reader(ctx context.Context, languages []string) (ports.OCRReader, error) {
	args := m.Called(ctx, languages)
	reader, _ := args.Get(0).(ports.OCRReader)
	return reader, args.Error(1)
}

type MockProfileLauncher struct{ mock.Mock }

var _ ports.ProfileLauncher = (*MockProfileLauncher)(nil)

func NewMockProfileLauncher(t testingT) *MockProfileLauncher {
	m := &MockProfileLauncher{}
	register(&m.Mock, t)
	return m
}

func (m *MockProfileLauncher) LaunchForSignIn(ctx context.Context, profileDir string, startURL string, timeout time.Duration, wait func() error) error {
	return m.Called(ctx, profileDir, startURL, timeout, wait).Error(0)
}

type MockClock struct{ mock.Mock }

var _ ports.Clock = (*MockClock)(nil)

func NewMockClock(t testingT) *MockClock {
	m := &MockClock{}
	register(&m.Mock, t)
	return m
}

func (m *MockClock) Now() time.Time {
	return m.Called().Get(0).(time.Time)
}

type MockProfileStore struct{ mock.Mock }

var _ ports.ProfileStore = (*MockProfileStore)(nil)

func NewMockProfileStore(t testingT) *MockProfileStore {
	m := &MockProfileStore{}
	register(&m.Mock, t)
	return m
}

func (m *MockProfileStore) Inspect(ctx context.Context, path string) (domain.ProfileStatus, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(domain.ProfileStatus), args.Error(1)
}

func (m *MockProfileStore) Ensure(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type MockIDGenerator struct{ mock.Mock }

var _ ports.IDGenerator = (*MockIDGenerator)(nil)

func NewMockIDGenerator(t testingT) *MockIDGenerator {
	m := &MockIDGenerator{}
	register(&m.Mock, t)
	return m
}

func (m *MockIDGenerator) NewID() string {
	return m.Called().String(0)
}
