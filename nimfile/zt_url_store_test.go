package nimfile_test

import (
	"strings"

	"github.com/nimbus-storage/nimbus-file-go/nimfile"
	chk "gopkg.in/check.v1"
)

type StoreURLSuite struct{}

var _ = chk.Suite(&StoreURLSuite{})

func (s *StoreURLSuite) TestStoreCreateDeleteDefault(c *chk.C) {
	fsu := getFSU()
	storeURL, _ := getStoreURL(c, fsu)

	cResp, err := storeURL.Create(ctx, nil)
	c.Assert(err, chk.IsNil)
	c.Assert(cResp.StatusCode(), chk.Equals, 201)
	c.Assert(cResp.ETag(), chk.Not(chk.Equals), nimfile.ETagNone)
	c.Assert(cResp.RequestID(), chk.Not(chk.Equals), "")
	c.Assert(cResp.Version(), chk.Not(chk.Equals), "")

	dResp, err := storeURL.Delete(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(dResp.StatusCode(), chk.Equals, 202)
}

func (s *StoreURLSuite) TestStoreCreateAlreadyExists(c *chk.C) {
	fsu := getFSU()
	storeURL, _ := createNewStore(c, fsu)
	defer delStore(c, storeURL)

	_, err := storeURL.Create(ctx, nil)
	c.Assert(err, chk.NotNil)
	c.Assert(err.(nimfile.StorageError).ServiceCode(), chk.Equals, nimfile.ServiceCodeStoreAlreadyExists)
}

func (s *StoreURLSuite) TestStoreCreateWithMetadata(c *chk.C) {
	fsu := getFSU()
	storeURL, _ := getStoreURL(c, fsu)

	md := nimfile.Metadata{"purpose": "testing"}
	_, err := storeURL.Create(ctx, md)
	c.Assert(err, chk.IsNil)
	defer delStore(c, storeURL)

	gResp, err := storeURL.GetProperties(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(gResp.StatusCode(), chk.Equals, 200)
	c.Assert(gResp.NewMetadata(), chk.DeepEquals, md)
}

func (s *StoreURLSuite) TestStoreGetPropertiesNotFound(c *chk.C) {
	fsu := getFSU()
	storeURL, _ := getStoreURL(c, fsu)

	_, err := storeURL.GetProperties(ctx)
	c.Assert(err, chk.NotNil)
	c.Assert(nimfile.KindOf(err), chk.Equals, nimfile.ErrorKindNotFound)
	c.Assert(err.(nimfile.StorageError).ServiceCode(), chk.Equals, nimfile.ServiceCodeStoreNotFound)
}

func (s *StoreURLSuite) TestStoreExistsDeleteIfExists(c *chk.C) {
	fsu := getFSU()
	storeURL, _ := getStoreURL(c, fsu)

	exists, err := storeURL.Exists(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(exists, chk.Equals, false)

	deleted, err := storeURL.DeleteIfExists(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(deleted, chk.Equals, false)

	_, err = storeURL.Create(ctx, nil)
	c.Assert(err, chk.IsNil)

	exists, err = storeURL.Exists(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(exists, chk.Equals, true)

	deleted, err = storeURL.DeleteIfExists(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(deleted, chk.Equals, true)
}

func (s *StoreURLSuite) TestStoreDeleteRemovesFiles(c *chk.C) {
	fsu := getFSU()
	storeURL, name := createNewStore(c, fsu)

	fileURL, fileName := createNewFileFromStore(c, storeURL, 1024)
	delStore(c, storeURL)

	// Recreate the store under the same name; the old file must be gone.
	storeURL = fsu.NewStoreURL(name)
	_, err := storeURL.Create(ctx, nil)
	c.Assert(err, chk.IsNil)
	defer delStore(c, storeURL)

	fileURL = storeURL.NewFileURL(fileName)
	exists, err := fileURL.Exists(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(exists, chk.Equals, false)
}

func (s *StoreURLSuite) TestStoreNewFileURLPathComposition(c *chk.C) {
	fsu := getFSU()
	storeURL := fsu.NewStoreURL("mystore")
	fileURL := storeURL.NewFileURL("dir/sub/data.bin")

	c.Assert(strings.HasSuffix(fileURL.String(), "/mystore/dir/sub/data.bin"), chk.Equals, true)
}

func (s *StoreURLSuite) TestServiceGetProperties(c *chk.C) {
	fsu := getFSU()

	gResp, err := fsu.GetProperties(ctx)
	c.Assert(err, chk.IsNil)
	c.Assert(gResp.StatusCode(), chk.Equals, 200)
	c.Assert(gResp.RequestID(), chk.Not(chk.Equals), "")
	c.Assert(gResp.Version(), chk.Equals, nimfile.ServiceVersion)
}
