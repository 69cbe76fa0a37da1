package collection

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hsnlab/changeflow/internal/testutils"
	"github.com/hsnlab/changeflow/pkg/changeset"
)

var (
	loglevel = -10
	logger   = testutils.NewLogger(GinkgoWriter, loglevel)
)

func TestCollection(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Collection")
}

type entry struct{ name string }

type batches = []changeset.ChangeSet[*entry]

var _ = Describe("List", func() {
	var (
		l       *List[*entry]
		a, b, c *entry
	)

	BeforeEach(func() {
		l = NewList[*entry](Options{Logger: logger})
		a, b, c = &entry{"a"}, &entry{"b"}, &entry{"c"}
	})

	Describe("Mutations", func() {
		It("should hold added items in order", func() {
			Expect(l.Add(a, b)).To(Succeed())
			Expect(l.Items()).To(Equal([]*entry{a, b}))
			Expect(l.Len()).To(Equal(2))
			Expect(l.Contains(a)).To(BeTrue())
			Expect(l.Contains(c)).To(BeFalse())
		})

		It("should insert at a position", func() {
			Expect(l.Add(a, b)).To(Succeed())
			Expect(l.Insert(1, c)).To(Succeed())
			Expect(l.Items()).To(Equal([]*entry{a, c, b}))
		})

		It("should reject out-of-range positions", func() {
			Expect(l.Insert(1, a)).To(MatchError(ErrIndexOutOfRange))
			Expect(l.RemoveAt(0)).To(MatchError(ErrIndexOutOfRange))
			Expect(l.Move(0, 0)).To(MatchError(ErrIndexOutOfRange))
		})

		It("should reject operations on unknown items", func() {
			Expect(l.Remove(a)).To(MatchError(ErrNotFound))
			Expect(l.Replace(a, b)).To(MatchError(ErrNotFound))
			Expect(l.Refresh(a)).To(MatchError(ErrNotFound))
		})

		It("should remove, replace and move items", func() {
			Expect(l.Add(a, b, c)).To(Succeed())
			Expect(l.Remove(b)).To(Succeed())
			Expect(l.Items()).To(Equal([]*entry{a, c}))

			d := &entry{"d"}
			Expect(l.Replace(a, d)).To(Succeed())
			Expect(l.Items()).To(Equal([]*entry{d, c}))

			Expect(l.Move(0, 1)).To(Succeed())
			Expect(l.Items()).To(Equal([]*entry{c, d}))
		})

		It("should clear all items", func() {
			Expect(l.Add(a, b)).To(Succeed())
			Expect(l.Clear()).To(Succeed())
			Expect(l.Len()).To(BeZero())
		})

		It("should reject mutations after termination", func() {
			Expect(l.Add(a)).To(Succeed())
			l.Complete()
			Expect(l.Add(b)).To(MatchError(ErrTerminated))
			Expect(l.Items()).To(Equal([]*entry{a}))
		})
	})

	Describe("Change stream", func() {
		var col *testutils.Collector[changeset.ChangeSet[*entry]]

		BeforeEach(func() {
			col = testutils.NewCollector[changeset.ChangeSet[*entry]]()
		})

		It("should deliver the current contents synchronously on subscribe", func() {
			Expect(l.Add(a, b)).To(Succeed())

			l.Changes().Subscribe(col)

			got := col.Batches()
			Expect(got).To(HaveLen(1))
			Expect(got[0]).To(HaveLen(1))
			Expect(got[0][0].Reason).To(Equal(changeset.Add))
			Expect(got[0][0].Affected()).To(Equal([]*entry{a, b}))
		})

		It("should suppress the initial changeset for an empty list", func() {
			l.Changes().Subscribe(col)
			Expect(col.Count()).To(BeZero())
		})

		It("should emit one changeset per mutation", func() {
			l.Changes().Subscribe(col)

			Expect(l.Add(a)).To(Succeed())
			Expect(l.Add(b)).To(Succeed())
			Expect(l.Remove(a)).To(Succeed())

			got := batches(col.Batches())
			Expect(got).To(HaveLen(3))
			Expect(got[0][0].Reason).To(Equal(changeset.Add))
			Expect(got[0][0].Current).To(BeIdenticalTo(a))
			Expect(got[1][0].Reason).To(Equal(changeset.Add))
			Expect(got[2][0].Reason).To(Equal(changeset.Remove))
			Expect(got[2][0].Current).To(BeIdenticalTo(a))
		})

		It("should batch edits into a single changeset", func() {
			l.Changes().Subscribe(col)

			err := l.Edit(func(u *Updater[*entry]) {
				u.Add(a)
				u.Add(b)
				Expect(u.Remove(a)).To(Succeed())
			})
			Expect(err).NotTo(HaveOccurred())

			got := batches(col.Batches())
			Expect(got).To(HaveLen(1))
			Expect(got[0]).To(HaveLen(3))
			Expect(l.Items()).To(Equal([]*entry{b}))
		})

		It("should not emit for edits that change nothing", func() {
			l.Changes().Subscribe(col)
			Expect(l.Edit(func(u *Updater[*entry]) {})).To(Succeed())
			Expect(l.Clear()).To(Succeed())
			Expect(col.Count()).To(BeZero())
		})

		It("should carry the cleared items in the clear change", func() {
			Expect(l.Add(a, b)).To(Succeed())
			l.Changes().Subscribe(col)

			Expect(l.Clear()).To(Succeed())

			got := batches(col.Batches())
			Expect(got).To(HaveLen(2))
			Expect(got[1][0].Reason).To(Equal(changeset.Clear))
			Expect(got[1][0].Affected()).To(Equal([]*entry{a, b}))
		})

		It("should fan out to all subscribers", func() {
			col2 := testutils.NewCollector[changeset.ChangeSet[*entry]]()
			l.Changes().Subscribe(col)
			l.Changes().Subscribe(col2)

			Expect(l.Add(a)).To(Succeed())

			Expect(col.Count()).To(Equal(1))
			Expect(col2.Count()).To(Equal(1))
		})

		It("should stop delivery after unsubscribe", func() {
			sub := l.Changes().Subscribe(col)
			Expect(l.Add(a)).To(Succeed())
			sub.Unsubscribe()
			sub.Unsubscribe()
			Expect(l.Add(b)).To(Succeed())

			Expect(col.Count()).To(Equal(1))
			Expect(col.Terminated()).To(BeFalse())
		})

		It("should complete every subscriber exactly once", func() {
			l.Changes().Subscribe(col)
			l.Complete()
			l.Complete()

			Expect(col.Completed()).To(BeTrue())
			Expect(col.Err()).NotTo(HaveOccurred())
		})

		It("should hand late subscribers the final contents and the terminal", func() {
			Expect(l.Add(a)).To(Succeed())
			l.Complete()

			l.Changes().Subscribe(col)

			Expect(col.Count()).To(Equal(1))
			Expect(col.Completed()).To(BeTrue())
		})

		It("should propagate the failure identity", func() {
			boom := errors.New("boom")
			l.Changes().Subscribe(col)
			l.Fail(boom)

			Expect(col.Err()).To(BeIdenticalTo(boom))
			Expect(col.Completed()).To(BeFalse())
		})
	})
})
