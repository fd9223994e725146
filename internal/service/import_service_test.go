package service

import (
	"context"
	"testing"
	"time"

	"parish-data/internal/domain"
	"parish-data/internal/repository"
	"parish-data/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupImportService() (*ImportService, *PersonService, *FieldDefService) {
	kv := store.NewMemoryKV()
	defService := NewFieldDefService(repository.NewMemoryFieldDefsRepository(), kv, zap.NewNop())
	personService := NewPersonService(repository.NewMemoryPeopleRepository(), defService, zap.NewNop())
	importService := NewImportService(personService, defService, kv, nil, 30*time.Minute, zap.NewNop())
	return importService, personService, defService
}

func TestParseCSV_QuotedCommas(t *testing.T) {
	data := []byte("First Name,Last Name,Email\n\"Smith, Jr.\",Doe,john@example.com\n")
	records, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"First Name", "Last Name", "Email"}, records[0])
	assert.Equal(t, "Smith, Jr.", records[1][0]) // 引号内的逗号不切分
}

func TestParseCSV_EscapedQuotes(t *testing.T) {
	data := []byte("Name\n\"He said \"\"hi\"\"\"\n")
	records, err := ParseCSV(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `He said "hi"`, records[1][0])
}

func TestAutoMapColumns(t *testing.T) {
	mapping := AutoMapColumns([]string{"First Name", "LAST_NAME", "Email Address", "Cell Phone", "Member Status", "Favorite Color"})
	assert.Equal(t, TargetFirstName, mapping["First Name"])
	assert.Equal(t, TargetLastName, mapping["LAST_NAME"])
	assert.Equal(t, TargetEmail, mapping["Email Address"])
	assert.Equal(t, TargetPhone, mapping["Cell Phone"])
	assert.Equal(t, TargetStatus, mapping["Member Status"])
	assert.Equal(t, TargetUnmapped, mapping["Favorite Color"]) // 匹配不上默认不导入
}

func TestImportRoundTrip(t *testing.T) {
	importService, personService, _ := setupImportService()
	ctx := context.Background()

	records, err := ParseCSV([]byte("First Name,Last Name,Email,Status\nJohn,Doe,john@x.com,active\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 1, begin.RowCount)
	assert.Equal(t, TargetFirstName, begin.ProposedMapping["First Name"])

	result, err := importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)

	people, err := personService.ListPeople(ctx, ListPeopleRequest{Role: domain.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, people.Items, 1)
	assert.Equal(t, "John", people.Items[0].FirstName)
	assert.Equal(t, "Doe", people.Items[0].LastName)
	assert.Equal(t, "john@x.com", people.Items[0].Email)
	assert.Equal(t, "active", people.Items[0].Status)
}

func TestSetMapping_ValidationReportsRowNumbers(t *testing.T) {
	importService, _, _ := setupImportService()
	ctx := context.Background()

	records, err := ParseCSV([]byte("First Name,Last Name,Status,Email\nJohn,Doe,member,john@x.com\nJane,Smith,active,nope\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)

	resp, err := importService.SetMapping(ctx, SetMappingRequest{
		SessionID: begin.SessionID,
		Mapping:   begin.ProposedMapping,
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 2)
	assert.Contains(t, resp.Errors[0], "row 2")
	assert.Contains(t, resp.Errors[0], "member") // 错误信息带上无效值
	assert.Contains(t, resp.Errors[1], "row 3")
	assert.Contains(t, resp.Errors[1], "nope")
}

func TestRunImport_BlockedByValidationErrors(t *testing.T) {
	importService, _, _ := setupImportService()
	ctx := context.Background()

	// Last Name列缺失映射
	records, err := ParseCSV([]byte("First Name,Surname\nJohn,Doe\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, TargetUnmapped, begin.ProposedMapping["Surname"])

	_, err = importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lastName")
}

func TestSetMapping_RequiredCustomFieldNeedsColumn(t *testing.T) {
	importService, _, defService := setupImportService()
	ctx := context.Background()

	_, err := defService.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label: "Baptism Date", Type: "date", Required: true,
	})
	require.NoError(t, err)

	records, err := ParseCSV([]byte("First Name,Last Name\nJohn,Doe\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)

	// 必填自定义字段没有映射列，在Map步骤即报错而不是逐行失败
	resp, err := importService.SetMapping(ctx, SetMappingRequest{
		SessionID: begin.SessionID,
		Mapping:   begin.ProposedMapping,
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "baptism_date")

	_, err = importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baptism_date")
}

func TestRunImport_BestEffortCountsFailures(t *testing.T) {
	importService, _, _ := setupImportService()
	ctx := context.Background()

	// 第3行缺first name，单行失败不中断导入
	records, err := ParseCSV([]byte("First Name,Last Name\nJohn,Doe\n,Smith\nMary,Johnson\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)

	result, err := importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 3")
}

func TestRunImport_MapsCustomFields(t *testing.T) {
	importService, personService, defService := setupImportService()
	ctx := context.Background()

	_, err := defService.CreateFieldDef(ctx, CreateFieldDefRequest{Label: "Baptized", Type: "checkbox"})
	require.NoError(t, err)
	_, err = defService.CreateFieldDef(ctx, CreateFieldDefRequest{
		Label: "Ministries", Type: "multiselect",
		Options: []domain.FieldOption{{Value: "choir", Label: "Choir"}, {Value: "ushers", Label: "Ushers"}},
	})
	require.NoError(t, err)

	records, err := ParseCSV([]byte("First Name,Last Name,Baptized Col,Ministry Col\nJohn,Doe,Yes,choir; ushers\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)

	mapping := begin.ProposedMapping
	mapping["Baptized Col"] = "baptized"
	mapping["Ministry Col"] = "ministries"
	_, err = importService.SetMapping(ctx, SetMappingRequest{SessionID: begin.SessionID, Mapping: mapping})
	require.NoError(t, err)

	result, err := importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)

	people, err := personService.ListPeople(ctx, ListPeopleRequest{Role: domain.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, people.Items, 1)
	assert.Equal(t, true, people.Items[0].Fields["baptized"])
	assert.Equal(t, []string{"choir", "ushers"}, people.Items[0].Fields["ministries"])
}

func TestRunImport_SessionConsumedAfterUse(t *testing.T) {
	importService, _, _ := setupImportService()
	ctx := context.Background()

	records, err := ParseCSV([]byte("First Name,Last Name\nJohn,Doe\n"))
	require.NoError(t, err)

	begin, err := importService.BeginSession(ctx, records)
	require.NoError(t, err)

	_, err = importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.NoError(t, err)

	// 重复执行同一会话被拒绝
	_, err = importService.RunImport(ctx, RunImportRequest{SessionID: begin.SessionID, Role: domain.RoleAdmin})
	require.Error(t, err)
	assert.ErrorIs(t, err, errSessionNotFound)
}
