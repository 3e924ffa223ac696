package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const demoDays = 14

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseSource()); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	end := service.Today(time.Now(), cfg.Location)
	user, err := createDemoUser(db.DB)
	if err != nil {
		log.Fatal("创建测试用户失败:", err)
	}
	if err := seedActivity(db.DB, user.ID, end, demoDays); err != nil {
		log.Fatal("生成活动数据失败:", err)
	}

	report, err := rebuildSummaries(db.DB, user.ID, end, demoDays)
	if err != nil {
		log.Fatal("重算汇总失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: demo (密码: demo123)")
	fmt.Printf("汇总: %d 天, 写入 %d 条\n", report.Days, report.SummariesWritten)
}

// 创建测试用户，已存在时直接返回
func createDemoUser(gdb *gorm.DB) (*db.User, error) {
	var existing db.User
	if err := gdb.Where("username = ?", "demo").First(&existing).Error; err == nil {
		fmt.Println("用户已存在，跳过创建")
		return &existing, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := db.User{Username: "demo", Password: string(hashed)}
	if err := gdb.Create(&user).Error; err != nil {
		return nil, err
	}
	profile := db.DefaultProfile(user.ID)
	profile.CalorieTarget = 2200
	if err := gdb.Create(&profile).Error; err != nil {
		return nil, err
	}

	fmt.Println("✅ 测试用户创建完成")
	return &user, nil
}

// seedActivity 通过领域服务写入 days 天的习惯、冥想、训练与饮食记录
// 服务内部不挂重算触发器，最后统一批量重算
func seedActivity(gdb *gorm.DB, userID uint, end time.Time, days int) error {
	habits := service.NewHabitService(gdb)
	checks := service.NewHabitCheckService(gdb, nil)
	meditations := service.NewMeditationService(gdb, nil)
	workouts := service.NewWorkoutService(gdb, nil)
	nutrition := service.NewNutritionService(gdb, nil)

	var habitIDs []uint
	for _, name := range []string{"晨间拉伸", "阅读 30 分钟", "十点前睡觉"} {
		habit, err := habits.Create(userID, service.HabitInput{Name: name})
		if err != nil {
			return fmt.Errorf("create habit %s: %w", name, err)
		}
		habitIDs = append(habitIDs, habit.ID)
	}

	squat, err := workouts.CreateExercise(userID, service.ExerciseInput{Name: "Back Squat", Category: db.ExerciseCategoryLegs, IsCompound: true})
	if err != nil {
		return err
	}
	bench, err := workouts.CreateExercise(userID, service.ExerciseInput{Name: "Bench Press", Category: db.ExerciseCategoryPush, IsCompound: true})
	if err != nil {
		return err
	}

	oats, err := nutrition.CreateFood(userID, service.FoodInput{
		Name:     "燕麦",
		Calories: 380,
		ProteinG: decimal.RequireFromString("13.5"),
		CarbsG:   decimal.NewFromInt(60),
		FatG:     decimal.NewFromInt(7),
	})
	if err != nil {
		return err
	}
	chicken, err := nutrition.CreateFood(userID, service.FoodInput{
		Name:     "鸡胸肉",
		Calories: 165,
		ProteinG: decimal.NewFromInt(31),
		CarbsG:   decimal.Zero,
		FatG:     decimal.RequireFromString("3.6"),
	})
	if err != nil {
		return err
	}

	start := end.AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)

		for j, habitID := range habitIDs {
			if (i+j)%4 == 3 {
				continue
			}
			if _, err := checks.Upsert(userID, service.HabitCheckInput{HabitID: habitID, Date: day, Completed: true}); err != nil {
				return err
			}
		}

		if i%2 == 0 {
			if _, err := meditations.Create(userID, service.MeditationInput{
				Date:            day,
				StartTime:       day.Add(7 * time.Hour),
				DurationMinutes: 10 + i,
				Style:           "breathing",
			}); err != nil {
				return err
			}
		}

		if i%3 == 0 {
			session, err := workouts.CreateSession(userID, service.WorkoutSessionInput{Date: day, StartTime: day.Add(18 * time.Hour)})
			if err != nil {
				return err
			}
			for set := 1; set <= 3; set++ {
				for _, lift := range []struct {
					exerciseID uint
					base       int64
				}{{squat.ID, 80}, {bench.ID, 60}} {
					reps := 5
					if _, err := workouts.AddSet(userID, session.ID, service.WorkoutSetInput{
						ExerciseID: lift.exerciseID,
						SetNumber:  set,
						Reps:       &reps,
						WeightKg:   decimal.NewNullDecimal(decimal.NewFromInt(lift.base + int64(i))),
					}); err != nil {
						return err
					}
				}
			}
		}

		if _, err := nutrition.CreateMeal(userID, service.MealInput{
			Date:     day,
			MealType: db.MealTypeBreakfast,
			Items:    []service.MealItemInput{{FoodID: oats.ID, Quantity: decimal.RequireFromString("0.8")}},
		}); err != nil {
			return err
		}
		if _, err := nutrition.CreateMeal(userID, service.MealInput{
			Date:     day,
			MealType: db.MealTypeDinner,
			Items:    []service.MealItemInput{{FoodID: chicken.ID, Quantity: decimal.NewFromInt(2)}},
		}); err != nil {
			return err
		}
	}

	fmt.Println("✅ 活动数据生成完成")
	return nil
}

func rebuildSummaries(gdb *gorm.DB, userID uint, end time.Time, days int) (*service.RecomputeReport, error) {
	recompute := service.NewRecomputeService(gdb, nil, service.RecomputeOptions{})
	result, err := recompute.RecomputeRange(context.Background(), service.RecomputeRequest{
		UserID: &userID,
		Start:  end.AddDate(0, 0, -(days - 1)),
		End:    end,
	})
	if err != nil {
		return nil, err
	}
	return result.Report, nil
}
